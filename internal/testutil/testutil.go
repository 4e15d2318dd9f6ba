// Package testutil provides shared test helpers for vaults, databases and in-memory page stores.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/linkgraph/internal/index"
	"github.com/starford/linkgraph/internal/models"
	"github.com/starford/linkgraph/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "linkgraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory populated with files
// (relative path -> content) and returns it with a storage.Provider.
func TestVault(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	for rel, content := range files {
		WriteFile(t, vaultDir, rel, content)
	}
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteFile writes content to rel under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// MemorySource is an in-memory page store for graph tests.
type MemorySource struct {
	Pages     []models.Page
	Blocks    [][]models.Block
	Lookup    map[int64]models.Block
	PagesErr  error
	BlocksErr error

	mu      sync.Mutex
	lookups []int64
}

// AllPages returns the configured pages.
func (m *MemorySource) AllPages(_ context.Context) ([]models.Page, error) {
	return m.Pages, m.PagesErr
}

// BlockReferences returns the configured blocks.
func (m *MemorySource) BlockReferences(_ context.Context) ([][]models.Block, error) {
	return m.Blocks, m.BlocksErr
}

// Block looks id up in Lookup and records the call.
func (m *MemorySource) Block(_ context.Context, id int64) (*models.Block, error) {
	m.mu.Lock()
	m.lookups = append(m.lookups, id)
	m.mu.Unlock()
	b, ok := m.Lookup[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// Lookups returns the block ids passed to Block so far.
func (m *MemorySource) Lookups() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.lookups...)
}

// Page is a shorthand for a plain page record.
func Page(id int64, name string) models.Page {
	return models.Page{ID: id, Name: name}
}
