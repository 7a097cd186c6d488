package repo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// File stores one file per key under Dir. Writes go to a temp file first and
// are renamed into place so a crash never leaves a torn value.
type File struct {
	Fs  afero.Fs
	Dir string
}

// NewFile returns a File backend on the OS filesystem, creating dir.
func NewFile(dir string) (File, error) {
	f := File{Fs: afero.NewOsFs(), Dir: dir}
	if err := f.Fs.MkdirAll(dir, 0o755); err != nil {
		return File{}, fmt.Errorf("create state dir: %w", err)
	}
	return f, nil
}

func (f File) path(key string) string {
	return filepath.Join(f.Dir, url.PathEscape(key)+".json")
}

func (f File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := afero.ReadFile(f.Fs, f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (f File) Set(_ context.Context, key string, value []byte) error {
	target := f.path(key)
	tmp := target + ".tmp"
	if err := afero.WriteFile(f.Fs, tmp, value, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Fs.Rename(tmp, target); err != nil {
		_ = f.Fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (f File) Delete(_ context.Context, key string) error {
	err := f.Fs.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (f File) Close() error { return nil }
