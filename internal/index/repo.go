package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/linkgraph/internal/apperr"
	"github.com/starford/linkgraph/internal/models"
)

// Counts are row totals of the index.
type Counts struct {
	Pages      int `json:"pages"`
	Journals   int `json:"journals"`
	Blocks     int `json:"blocks"`
	References int `json:"references"`
}

// AllPages returns every page in id order, with its aliases.
func (db *DB) AllPages(ctx context.Context) ([]models.Page, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, journal, graph_hide, icon, page_icon
		FROM pages
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("index: all pages: %w", err)
	}
	defer rows.Close()

	var out []models.Page
	pos := make(map[int64]int)
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.ID, &p.Name, &p.Journal, &p.Properties.GraphHide, &p.Properties.Icon, &p.Properties.PageIcon); err != nil {
			return nil, err
		}
		pos[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	aliases, err := db.conn.QueryContext(ctx, `SELECT page_id, alias FROM page_aliases ORDER BY page_id, position`)
	if err != nil {
		return nil, fmt.Errorf("index: page aliases: %w", err)
	}
	defer aliases.Close()
	for aliases.Next() {
		var id int64
		var alias string
		if err := aliases.Scan(&id, &alias); err != nil {
			return nil, err
		}
		if i, ok := pos[id]; ok {
			out[i].Properties.Alias = append(out[i].Properties.Alias, alias)
		}
	}
	return out, aliases.Err()
}

// BlockReferences returns every block with at least one reference,
// grouped by page, in page and position order.
func (db *DB) BlockReferences(ctx context.Context) ([][]models.Block, error) {
	refs, err := db.idLists(ctx, `SELECT block_id, target_id FROM block_refs ORDER BY block_id, position`)
	if err != nil {
		return nil, fmt.Errorf("index: block refs: %w", err)
	}
	paths, err := db.idLists(ctx, `SELECT block_id, page_id FROM block_path_refs ORDER BY block_id, position`)
	if err != nil {
		return nil, fmt.Errorf("index: block path refs: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT b.id, b.page_id
		FROM blocks b
		WHERE EXISTS (SELECT 1 FROM block_refs r WHERE r.block_id = b.id)
		ORDER BY b.page_id, b.position`)
	if err != nil {
		return nil, fmt.Errorf("index: blocks: %w", err)
	}
	defer rows.Close()

	var out [][]models.Block
	var lastPage int64
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.ID, &b.PageID); err != nil {
			return nil, err
		}
		b.Refs = refs[b.ID]
		b.PathRefs = paths[b.ID]
		if len(out) == 0 || b.PageID != lastPage {
			out = append(out, nil)
			lastPage = b.PageID
		}
		out[len(out)-1] = append(out[len(out)-1], b)
	}
	return out, rows.Err()
}

// idLists groups (key, value) rows into ordered lists per key.
func (db *DB) idLists(ctx context.Context, query string) (map[int64][]int64, error) {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]int64)
	for rows.Next() {
		var k, v int64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = append(out[k], v)
	}
	return out, rows.Err()
}

// Block returns the block with the given id, or nil when there is none.
func (db *DB) Block(ctx context.Context, id int64) (*models.Block, error) {
	b := models.Block{ID: id}
	err := db.conn.QueryRowContext(ctx, `SELECT page_id FROM blocks WHERE id = ?`, id).Scan(&b.PageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: block %d: %w", id, err)
	}
	return &b, nil
}

// PageByName looks a page up by name, ignoring case.
func (db *DB) PageByName(ctx context.Context, name string) (models.Page, error) {
	var p models.Page
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, name, journal, graph_hide, icon, page_icon FROM pages WHERE lower_name = ?`,
		strings.ToLower(strings.TrimSpace(name)),
	).Scan(&p.ID, &p.Name, &p.Journal, &p.Properties.GraphHide, &p.Properties.Icon, &p.Properties.PageIcon)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("index: page %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("index: page %q: %w", name, err)
	}
	return p, nil
}

// CoCitations returns, for every block whose path references include the
// page called name, the names of all pages in those path references. The
// queried page itself is among them. Rows are distinct.
func (db *DB) CoCitations(ctx context.Context, name string) ([]models.CoCitation, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT pr.block_id, other.name
		FROM block_path_refs pr
		JOIN pages linked ON linked.id = pr.page_id AND linked.lower_name = ?
		JOIN block_path_refs pr2 ON pr2.block_id = pr.block_id
		JOIN pages other ON other.id = pr2.page_id
		ORDER BY pr.block_id, other.name`, strings.ToLower(name))
	if err != nil {
		return nil, fmt.Errorf("index: co-citations: %w", err)
	}
	defer rows.Close()

	var out []models.CoCitation
	for rows.Next() {
		var c models.CoCitation
		if err := rows.Scan(&c.BlockID, &c.PageName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// QueryPages runs a read-only SQL query and returns the first column of
// every row as a page id. Only SELECT and WITH statements are accepted,
// and the connection is switched to query_only while the query runs.
func (db *DB) QueryPages(ctx context.Context, query string) ([]int64, error) {
	q := strings.TrimSpace(query)
	lower := strings.ToLower(q)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return nil, fmt.Errorf("index: query must be a SELECT: %w", apperr.ErrInvalidArgument)
	}

	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: query conn: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
		return nil, fmt.Errorf("index: query_only: %w", err)
	}
	defer conn.ExecContext(context.Background(), `PRAGMA query_only = OFF`) //nolint:errcheck

	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("index: query returns no columns: %w", apperr.ErrInvalidArgument)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var out []int64
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		id, ok := toID(vals[0])
		if !ok {
			continue
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func toID(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), x == float64(int64(x))
	case []byte:
		id, err := strconv.ParseInt(string(x), 10, 64)
		return id, err == nil
	case string:
		id, err := strconv.ParseInt(x, 10, 64)
		return id, err == nil
	}
	return 0, false
}

// Counts returns row totals.
func (db *DB) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM pages),
			(SELECT count(*) FROM pages WHERE journal = 1),
			(SELECT count(*) FROM blocks),
			(SELECT count(*) FROM block_refs)`).Scan(&c.Pages, &c.Journals, &c.Blocks, &c.References)
	if err != nil {
		return c, fmt.Errorf("index: counts: %w", err)
	}
	return c, nil
}
