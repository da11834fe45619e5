package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// FileStore keeps one <id>.json file per analysis in a flat directory.
// Writes go through a temp file so readers never see a partial document.
type FileStore struct {
	dir string
	mu  sync.Mutex // serialises read-modify-write in Update
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("create store directory", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id domain.ID) string {
	return filepath.Join(s.dir, string(id)+".json")
}

// Create links a fully written temp file into place, so an existing id is
// never overwritten.
func (s *FileStore) Create(ctx context.Context, a *domain.Analysis) error {
	if !a.ID.Valid() {
		return storageErr("invalid analysis id "+string(a.ID), nil)
	}
	b, err := encodeRecord(a)
	if err != nil {
		return storageErr("encode analysis", err)
	}
	tmp, err := s.writeTemp(b)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, s.path(a.ID)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return alreadyExists(a.ID)
		}
		return storageErr("link analysis file", err)
	}
	return nil
}

// Update replaces the report text and bumps UpdatedAt.
func (s *FileStore) Update(ctx context.Context, id domain.ID, report string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	a.Report = report
	a.UpdatedAt = at

	b, err := encodeRecord(a)
	if err != nil {
		return storageErr("encode analysis", err)
	}
	tmp, err := s.writeTemp(b)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path(id)); err != nil {
		os.Remove(tmp)
		return storageErr("replace analysis file", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, id domain.ID) (*domain.Analysis, error) {
	if !id.Valid() {
		return nil, notFound(id)
	}
	b, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(id)
		}
		return nil, storageErr("read analysis file", err)
	}
	return decodeRecord(id, b)
}

// Ping reports whether the store directory is usable.
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New(s.dir + " is not a directory")
	}
	return nil
}

func (s *FileStore) writeTemp(b []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", storageErr("create temp file", err)
	}
	name := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(name)
		return "", storageErr("write temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", storageErr("sync temp file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", storageErr("close temp file", err)
	}
	return name, nil
}
