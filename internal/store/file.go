package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps each collection in <dir>/<key>.json.
type FileBackend struct {
	dir      string
	defaults fs.FS
}

// NewFileBackend creates dir if needed. When defaults is non-nil, a key whose
// file does not exist yet is read from defaults instead.
func NewFileBackend(dir string, defaults fs.FS) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &FileBackend{dir: dir, defaults: defaults}, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) Read(_ context.Context, key string) ([]Record, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return b.readDefaults(key)
	}
	if err != nil {
		return nil, false, err
	}
	records, err := decodeArray(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", b.path(key), err)
	}
	return records, true, nil
}

// Write replaces the file through a rename so readers never see a partial
// array.
func (b *FileBackend) Write(_ context.Context, key string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path(key))
}

// Check verifies the data directory is still there.
func (b *FileBackend) Check(_ context.Context) error {
	info, err := os.Stat(b.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", b.dir)
	}
	return nil
}

func (b *FileBackend) readDefaults(key string) ([]Record, bool, error) {
	if b.defaults == nil {
		return nil, false, nil
	}
	data, err := fs.ReadFile(b.defaults, key+".json")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	records, err := decodeArray(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding default %s: %w", key, err)
	}
	return records, true, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, filepath.Base(key)+".json")
}
