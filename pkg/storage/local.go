package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type local struct{}

// NewLocal returns a System that opens files from the local filesystem.
func NewLocal() System {
	return local{}
}

func (local) Open(_ context.Context, key string) (*Object, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	f, err := os.Open(key)
	if err != nil {
		return nil, mapFSError(key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory: %w", key, ErrInvalidKey)
	}

	return &Object{
		ReadCloser: f,
		Name:       filepath.Base(key),
		Size:       info.Size(),
	}, nil
}

func mapFSError(key string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("open %s: %w", key, ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("open %s: %w", key, ErrForbidden)
	}
	return fmt.Errorf("open %s: %w", key, err)
}
