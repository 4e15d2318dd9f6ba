package index

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/starford/linkgraph/internal/apperr"
	"github.com/starford/linkgraph/internal/models"
	"github.com/starford/linkgraph/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "linkgraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func vaultWith(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

func syncVault(t *testing.T, files map[string]string) *DB {
	t.Helper()
	db := testDB(t)
	_, store := vaultWith(t, files)
	if _, err := Sync(context.Background(), db, store, SyncOptions{JournalsDir: "journals"}, testLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return db
}

func pageIDs(t *testing.T, db *DB) map[string]int64 {
	t.Helper()
	pages, err := db.AllPages(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]int64, len(pages))
	for _, p := range pages {
		out[p.Name] = p.ID
	}
	return out
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"pages", "page_aliases", "blocks", "block_refs", "block_path_refs", "meta"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestOpen_AddsMissingColumns(t *testing.T) {
	f, err := os.CreateTemp("", "linkgraph-old-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	old, err := sql.Open("sqlite3", f.Name())
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE pages (id INTEGER PRIMARY KEY, name TEXT NOT NULL, lower_name TEXT NOT NULL UNIQUE,
			path TEXT, journal INTEGER NOT NULL DEFAULT 0, graph_hide INTEGER NOT NULL DEFAULT 0,
			icon TEXT NOT NULL DEFAULT '')`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		`INSERT INTO meta (key, value) VALUES ('vault_fingerprint', 'stale')`,
	} {
		if _, err := old.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	old.Close()

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM pragma_table_info('pages') WHERE name = 'page_icon'`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("page_icon column count = %d, %v", n, err)
	}
	if v, err := db.meta(context.Background(), fingerprintKey); err != nil || v != "" {
		t.Errorf("fingerprint = %q, %v; want it reset", v, err)
	}
}

func TestSync_PagesAndPlaceholders(t *testing.T) {
	db := syncVault(t, map[string]string{
		"pages/Go.md":         "---\nalias: golang\nicon: \"🐹\"\n---\n- uses [[Channels]]\n",
		"journals/2024_01.md": "- wrote about [[Go]]\n",
		"pages/Hidden.md":     "graph-hide:: true\n\n- secret\n",
		"pages/Book.md":       "page-icon:: 📘\n\n- read\n",
	})
	ids := pageIDs(t, db)

	// Sorted by case-folded name: 2024_01, book, channels, go, golang, hidden.
	want := map[string]int64{"2024_01": 1, "Book": 2, "Channels": 3, "Go": 4, "golang": 5, "Hidden": 6}
	for name, id := range want {
		if ids[name] != id {
			t.Errorf("id[%s] = %d, want %d (all: %v)", name, ids[name], id, ids)
		}
	}

	pages, _ := db.AllPages(context.Background())
	byName := make(map[string]models.Page)
	for _, p := range pages {
		byName[p.Name] = p
	}
	if !byName["2024_01"].Journal || byName["Go"].Journal {
		t.Error("journal flag should follow the journals dir")
	}
	if !slices.Equal(byName["Go"].Properties.Alias, []string{"golang"}) || byName["Go"].Properties.Icon != "🐹" {
		t.Errorf("Go properties = %+v", byName["Go"].Properties)
	}
	if byName["Book"].Properties.Glyph() != "📘" {
		t.Errorf("Book properties = %+v", byName["Book"].Properties)
	}
	if !byName["Hidden"].Properties.GraphHide {
		t.Error("Hidden should carry graph-hide")
	}
}

func TestSync_BlockReferencesAndPathRefs(t *testing.T) {
	db := syncVault(t, map[string]string{
		"a.md": "- top [[B]]\n  - nested [[C]] #d\n  - plain\n- other ((anchor1))\n",
		"b.md": "- target block ^anchor1\n",
	})
	ids := pageIDs(t, db)
	a, b, c, d := ids["a"], ids["b"], ids["C"], ids["d"]
	if a == 0 || b == 0 || c == 0 || d == 0 {
		t.Fatalf("ids = %v", ids)
	}

	groups, err := db.BlockReferences(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var blocks []models.Block
	for _, g := range groups {
		blocks = append(blocks, g...)
	}
	// "plain" and the anchor block have no refs and are left out.
	if len(blocks) != 3 {
		t.Fatalf("blocks = %+v, want 3", blocks)
	}

	top, nested, other := blocks[0], blocks[1], blocks[2]
	if !slices.Equal(top.Refs, []int64{b}) || !slices.Equal(top.PathRefs, []int64{a, b}) {
		t.Errorf("top = %+v", top)
	}
	if !slices.Equal(nested.Refs, []int64{c, d}) || !slices.Equal(nested.PathRefs, []int64{a, b, c, d}) {
		t.Errorf("nested = %+v", nested)
	}

	// The block reference resolves to the anchored block on page b.
	if len(other.Refs) != 1 {
		t.Fatalf("other = %+v", other)
	}
	target, err := db.Block(context.Background(), other.Refs[0])
	if err != nil || target == nil || target.PageID != b {
		t.Errorf("anchored block = %+v, %v; want page %d", target, err, b)
	}
}

func TestSync_SkipsUnchangedVault(t *testing.T) {
	db := testDB(t)
	dir, store := vaultWith(t, map[string]string{"a.md": "- [[B]]\n"})
	ctx := context.Background()

	first, err := Sync(ctx, db, store, SyncOptions{}, testLogger())
	if err != nil || !first.Changed {
		t.Fatalf("first sync = %+v, %v", first, err)
	}
	second, err := Sync(ctx, db, store, SyncOptions{}, testLogger())
	if err != nil || second.Changed {
		t.Fatalf("second sync = %+v, %v; want unchanged", second, err)
	}
	if second.Fingerprint != first.Fingerprint {
		t.Error("fingerprint should be stable")
	}

	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("- [[C]]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	third, err := Sync(ctx, db, store, SyncOptions{}, testLogger())
	if err != nil || !third.Changed {
		t.Fatalf("third sync = %+v, %v; want changed", third, err)
	}
	if _, err := db.PageByName(ctx, "B"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale placeholder B should be gone, err = %v", err)
	}
}

func TestSync_DuplicateNames(t *testing.T) {
	db := testDB(t)
	_, store := vaultWith(t, map[string]string{
		"one/Same.md": "- first",
		"two/same.md": "- second",
	})
	res, err := Sync(context.Background(), db, store, SyncOptions{}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Pages != 1 {
		t.Errorf("result = %+v, want 1 page and 1 skipped", res)
	}
}

func TestBlock_NotFound(t *testing.T) {
	db := testDB(t)
	b, err := db.Block(context.Background(), 42)
	if err != nil || b != nil {
		t.Errorf("Block(42) = %+v, %v; want nil, nil", b, err)
	}
}

func TestCoCitations(t *testing.T) {
	db := syncVault(t, map[string]string{
		"x.md": "- [[A]] and [[B]]\n- [[A]] with [[C]]\n  - child [[D]]\n",
	})
	rows, err := db.CoCitations(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]int)
	for _, r := range rows {
		names[r.PageName]++
	}
	// Every block whose path refs contain A: both top blocks and the child.
	want := map[string]int{"A": 3, "B": 1, "C": 2, "D": 1, "x": 3}
	for n, c := range want {
		if names[n] != c {
			t.Errorf("rows for %s = %d, want %d (all %v)", n, names[n], c, names)
		}
	}
}

func TestQueryPages(t *testing.T) {
	db := syncVault(t, map[string]string{"a.md": "- [[B]]\n", "journals/j.md": "- x\n"})
	ctx := context.Background()

	ids, err := db.QueryPages(ctx, "select id, name from pages where journal = 1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("ids = %v, want one journal", ids)
	}

	if _, err := db.QueryPages(ctx, "delete from pages"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
	if _, err := db.QueryPages(ctx, "with x as (select 1) delete from pages"); err == nil {
		t.Error("writes must be rejected in query_only mode")
	}
	c, err := db.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c.Pages != 3 || c.Journals != 1 {
		t.Errorf("counts = %+v", c)
	}
}
