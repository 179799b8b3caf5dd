package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

const fileExt = ".json"

// File stores each key as <dir>/<key>.json.
type File struct {
	root string
}

// NewFile creates a store rooted at dir, creating the directory if needed.
func NewFile(dir string) (*File, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve dir: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}

	return &File{root: abs}, nil
}

// path maps key to its file, rejecting keys that would leave the root.
func (f *File) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", domain.NewValidationErrorWithValue("key", "must be a plain file name", key)
	}

	return filepath.Join(f.root, key+fileExt), nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(key)
		}

		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}

	return data, nil
}

// Put writes through a temp file, fsync and rename.
func (f *File) Put(_ context.Context, key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".esoteric-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}

	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}

	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}

	success = true

	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}

	return nil
}

func (f *File) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), fileExt)
		if e.IsDir() || !ok || strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}

		keys = append(keys, name)
	}

	return keys, nil
}

func (f *File) Name() string { return "cache-file" }

// Check verifies the root directory still exists.
func (f *File) Check(context.Context) error {
	info, err := os.Stat(f.root)
	if err != nil {
		return fmt.Errorf("storage: stat root: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("storage: root is not a directory: %s", f.root)
	}

	return nil
}

func (f *File) Close() error { return nil }
