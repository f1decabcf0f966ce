// Package storage reads and writes the Markdown vault on disk.
package storage

import "github.com/starford/daymark/internal/models"

// Provider is the vault file abstraction the index and the id writer depend on.
type Provider interface {
	// List returns metadata for every page file under dir (relative to vault root).
	List(dir string) ([]models.FileMeta, error)
	// Stat returns metadata for a single page file.
	Stat(path string) (models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path (relative to vault root).
	Write(path string, content []byte) error
}
