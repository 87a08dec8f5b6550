// Package local stores workbooks on the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

const Provider = "local"

// Store reads and writes workbook files under an optional base directory.
type Store struct {
	baseDir string
}

// NewStore creates a filesystem store. Relative handle paths resolve against
// baseDir; an empty baseDir leaves paths as given.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Fetch reads the workbook file. A missing file maps to ErrSheetNotFound so
// a misconfigured template fails the same way as a missing sheet.
func (s *Store) Fetch(_ context.Context, handle domain.StorageHandle) ([]byte, error) {
	path := s.resolve(handle)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workbook %s: %w", path, errs.ErrSheetNotFound)
		}
		return nil, fmt.Errorf("failed to read workbook %s: %w", path, err)
	}
	return data, nil
}

// Save writes the workbook atomically: the bytes land in a temp file next to
// the target and replace it with a rename. A crashed write leaves the
// previous workbook intact.
func (s *Store) Save(_ context.Context, handle domain.StorageHandle, data []byte) error {
	path := s.resolve(handle)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write workbook %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace workbook %s: %w", path, err)
	}
	return nil
}

func (s *Store) resolve(handle domain.StorageHandle) string {
	if s.baseDir == "" || filepath.IsAbs(handle.Path) {
		return handle.Path
	}
	return filepath.Join(s.baseDir, handle.Path)
}
