// Package index keeps the vault's pages, blocks and references in SQLite
// and answers the queries the graph is built from.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	id         INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	lower_name TEXT NOT NULL UNIQUE,
	path       TEXT,
	journal    INTEGER NOT NULL DEFAULT 0,
	graph_hide INTEGER NOT NULL DEFAULT 0,
	icon       TEXT NOT NULL DEFAULT '',
	page_icon  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS page_aliases (
	page_id  INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	alias    TEXT NOT NULL,
	PRIMARY KEY (page_id, position)
);

CREATE TABLE IF NOT EXISTS blocks (
	id        INTEGER PRIMARY KEY,
	page_id   INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	parent_id INTEGER,
	anchor    TEXT NOT NULL DEFAULT '',
	content   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS block_refs (
	block_id  INTEGER NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	target_id INTEGER NOT NULL,
	PRIMARY KEY (block_id, position)
);

CREATE TABLE IF NOT EXISTS block_path_refs (
	block_id INTEGER NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	page_id  INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	PRIMARY KEY (block_id, position)
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_blocks_page ON blocks(page_id, position);
CREATE INDEX IF NOT EXISTS idx_blocks_anchor ON blocks(anchor);
CREATE INDEX IF NOT EXISTS idx_path_refs_page ON block_path_refs(page_id);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

// addedColumns lists page columns introduced after the first schema.
var addedColumns = []struct{ name, def string }{
	{"page_icon", "TEXT NOT NULL DEFAULT ''"},
}

// migrate adds missing columns to an older index. The stored fingerprint is
// dropped so the next Sync fills them in.
func migrate(conn *sql.DB) error {
	for _, col := range addedColumns {
		var n int
		err := conn.QueryRow(`SELECT count(*) FROM pragma_table_info('pages') WHERE name = ?`, col.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("index: inspect pages: %w", err)
		}
		if n > 0 {
			continue
		}
		if _, err := conn.Exec(`ALTER TABLE pages ADD COLUMN ` + col.name + ` ` + col.def); err != nil {
			return fmt.Errorf("index: add column %s: %w", col.name, err)
		}
		if _, err := conn.Exec(`DELETE FROM meta WHERE key = ?`, fingerprintKey); err != nil {
			return fmt.Errorf("index: reset fingerprint: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
