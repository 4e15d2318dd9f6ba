package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/linkgraph/internal/checksum"
	"github.com/starford/linkgraph/internal/models"
	"github.com/starford/linkgraph/internal/parser"
	"github.com/starford/linkgraph/internal/storage"
)

const fingerprintKey = "vault_fingerprint"

// SyncOptions controls how vault files become pages.
type SyncOptions struct {
	// JournalsDir is the vault-relative directory whose pages are journals.
	JournalsDir string
	// Force rewrites the index even when the vault is unchanged.
	Force bool
}

// SyncResult describes a Sync run.
type SyncResult struct {
	Changed     bool
	Files       int
	Pages       int
	Blocks      int
	Skipped     int
	Fingerprint string
}

// Fingerprint summarises the vault listing and options. It changes
// whenever a page file is added, removed, renamed or edited.
func Fingerprint(metas []models.FileMetadata, opts SyncOptions) string {
	var b strings.Builder
	b.WriteString("journals=")
	b.WriteString(opts.JournalsDir)
	b.WriteByte('\n')
	for _, m := range metas {
		b.WriteString(m.Path)
		b.WriteByte(0)
		b.WriteString(m.Checksum)
		b.WriteByte('\n')
	}
	return checksum.Sum([]byte(b.String()))
}

// Sync parses the whole vault and rewrites the index in one transaction.
// The rewrite is skipped when the vault fingerprint matches the one stored
// by the previous run. Files that cannot be read or parsed are logged and
// left out.
func Sync(ctx context.Context, db *DB, store storage.Provider, opts SyncOptions, logger *slog.Logger) (SyncResult, error) {
	metas, err := store.List("")
	if err != nil {
		return SyncResult{}, err
	}
	res := SyncResult{Files: len(metas), Fingerprint: Fingerprint(metas, opts)}

	if !opts.Force {
		prev, err := db.meta(ctx, fingerprintKey)
		if err != nil {
			return res, err
		}
		if prev == res.Fingerprint {
			logger.Debug("sync: vault unchanged", slog.String("fingerprint", res.Fingerprint))
			return res, nil
		}
	}

	files := make([]sourceFile, 0, len(metas))
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("index: sync: %w", err)
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			res.Skipped++
			continue
		}
		doc, err := parser.Parse(data)
		if err != nil {
			logger.Warn("sync: parse failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			res.Skipped++
			continue
		}
		files = append(files, sourceFile{Path: m.Path, Doc: doc})
	}

	v := resolveVault(files, opts.JournalsDir)
	for _, p := range v.Duplicates {
		logger.Warn("sync: duplicate page name", slog.String("path", p))
		res.Skipped++
	}

	if err := db.replace(ctx, v, res.Fingerprint); err != nil {
		return res, err
	}
	res.Changed = true
	res.Pages = len(v.Pages)
	res.Blocks = len(v.Blocks)
	logger.Info("sync: index rewritten",
		slog.Int("files", res.Files),
		slog.Int("pages", res.Pages),
		slog.Int("blocks", res.Blocks),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

// replace swaps the index content for v.
func (db *DB) replace(ctx context.Context, v *vault, fingerprint string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"block_path_refs", "block_refs", "blocks", "page_aliases", "pages"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("index: clear %s: %w", table, err)
		}
	}

	pageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (id, name, lower_name, path, journal, graph_hide, icon, page_icon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare page insert: %w", err)
	}
	defer pageStmt.Close()
	aliasStmt, err := tx.PrepareContext(ctx, `INSERT INTO page_aliases (page_id, position, alias) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare alias insert: %w", err)
	}
	defer aliasStmt.Close()

	for _, p := range v.Pages {
		var path sql.NullString
		if p.Path != "" {
			path = sql.NullString{String: p.Path, Valid: true}
		}
		if _, err := pageStmt.ExecContext(ctx, p.ID, p.Name, p.Lower, path, p.Journal, p.Hide, p.Icon, p.PageIcon); err != nil {
			return fmt.Errorf("index: insert page %q: %w", p.Name, err)
		}
		for i, a := range p.Aliases {
			if _, err := aliasStmt.ExecContext(ctx, p.ID, i, a); err != nil {
				return fmt.Errorf("index: insert alias: %w", err)
			}
		}
	}

	blockStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO blocks (id, page_id, position, parent_id, anchor, content)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare block insert: %w", err)
	}
	defer blockStmt.Close()
	refStmt, err := tx.PrepareContext(ctx, `INSERT INTO block_refs (block_id, position, target_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare ref insert: %w", err)
	}
	defer refStmt.Close()
	pathStmt, err := tx.PrepareContext(ctx, `INSERT INTO block_path_refs (block_id, position, page_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare path ref insert: %w", err)
	}
	defer pathStmt.Close()

	for _, b := range v.Blocks {
		var parent sql.NullInt64
		if b.ParentID != 0 {
			parent = sql.NullInt64{Int64: b.ParentID, Valid: true}
		}
		if _, err := blockStmt.ExecContext(ctx, b.ID, b.PageID, b.Position, parent, b.Anchor, b.Content); err != nil {
			return fmt.Errorf("index: insert block: %w", err)
		}
		for i, id := range b.Refs {
			if _, err := refStmt.ExecContext(ctx, b.ID, i, id); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
		for i, id := range b.PathRefs {
			if _, err := pathStmt.ExecContext(ctx, b.ID, i, id); err != nil {
				return fmt.Errorf("index: insert path ref: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fingerprintKey, fingerprint); err != nil {
		return fmt.Errorf("index: store fingerprint: %w", err)
	}
	return tx.Commit()
}

// meta returns a stored metadata value, or "" when unset.
func (db *DB) meta(ctx context.Context, key string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: read meta %s: %w", key, err)
	}
	return v, nil
}
