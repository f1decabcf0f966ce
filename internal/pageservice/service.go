// Package pageservice coordinates vault writes with the index.
package pageservice

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/index"
	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/parser"
	"github.com/starford/daymark/internal/storage"
)

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    *index.DB
}

// NewService creates a new page service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db}
}

// PinIDs writes an id:: property under every given block so its derived id
// survives edits that shift block positions. Blocks are grouped by file and
// each file is rewritten once. A file that changed since it was indexed is
// left alone and reported as apperr.ErrConflict.
func (s *Service) PinIDs(ctx context.Context, entries []models.Entry) error {
	byPath := make(map[string][]models.Entry)
	var paths []string
	for _, e := range entries {
		if e.IDPinned || e.IsPage || e.PreBlock || e.Path == "" || e.Line <= 0 {
			continue
		}
		if _, ok := byPath[e.Path]; !ok {
			paths = append(paths, e.Path)
		}
		byPath[e.Path] = append(byPath[e.Path], e)
	}
	slices.Sort(paths)

	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.pinFile(p, byPath[p]); err != nil {
			errs = append(errs, fmt.Errorf("pin %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) pinFile(path string, blocks []models.Entry) error {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	indexed, err := s.db.GetChecksum(path)
	if err != nil {
		return err
	}
	if indexed != storage.Checksum(data) {
		return apperr.ErrConflict
	}

	// Bottom-up so earlier insertions do not shift later line numbers.
	slices.SortFunc(blocks, func(a, b models.Entry) int { return cmp.Compare(b.Line, a.Line) })
	for _, b := range blocks {
		data, err = parser.InsertID(data, b.Line, b.ID)
		if err != nil {
			return err
		}
	}
	if err := s.store.Write(path, data); err != nil {
		return err
	}
	return s.IndexFile(path, data)
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	doc, err := parser.Parse(path, data, s.db.Dates())
	if err != nil {
		return err
	}
	return s.db.UpsertDocument(doc, storage.Checksum(data), time.Now().UTC())
}
