// Package fsstore keeps store documents in a directory tree.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spigell/skillsynx/internal/store"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Blobs maps keys to files below root.
type Blobs struct {
	fs   afero.Fs
	root string
}

var _ store.Blobs = (*Blobs)(nil)

// New returns blobs rooted at root on fsys. A nil fsys means the OS filesystem.
func New(fsys afero.Fs, root string) *Blobs {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Blobs{fs: fsys, root: filepath.Clean(root)}
}

func (b *Blobs) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", store.ErrInvalidKey, key)
	}
	return filepath.Join(b.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (b *Blobs) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := b.path(key)
	if err != nil {
		return err
	}

	if err := b.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}

	// Write to a sibling file first so readers never see a partial document.
	tmp := target + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := b.fs.Rename(tmp, target); err != nil {
		_ = b.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (b *Blobs) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := b.path(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(b.fs, target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (b *Blobs) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := b.path(prefix)
	if err != nil {
		return nil, err
	}

	exists, err := afero.DirExists(b.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", prefix, err)
	}
	if !exists {
		return []string{}, nil
	}

	keys := make([]string, 0)
	err = afero.Walk(b.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}
