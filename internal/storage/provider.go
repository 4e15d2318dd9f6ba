// Package storage gives read-only access to the Markdown files of a vault.
package storage

import "github.com/starford/linkgraph/internal/models"

// Provider lists and reads vault pages.
type Provider interface {
	// List returns metadata for every page file under dir (relative to the
	// vault root), sorted by path.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the vault root).
	Read(path string) ([]byte, error)
}
