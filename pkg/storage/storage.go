// Package storage opens upload sources from local disk, Azure Blob Storage, or Amazon S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
)

// Reference schemes understood by Resolver.
const (
	SchemeFile  = "file"
	SchemeAzure = "azblob"
	SchemeS3    = "s3"
)

// Object is an open source file. The caller must close it.
type Object struct {
	io.ReadCloser
	// Name is the base name used when uploading.
	Name string
	// Size is the content length in bytes, or -1 when unknown.
	Size        int64
	ContentType string
}

// System opens objects by key within one backend.
type System interface {
	Open(ctx context.Context, key string) (*Object, error)
}

// Resolver dispatches references to the backend named by their scheme.
type Resolver struct {
	systems map[string]System
	logger  *slog.Logger
}

// New creates a Resolver with the local backend and every configured remote backend.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Resolver, error) {
	r := &Resolver{
		systems: map[string]System{SchemeFile: NewLocal()},
		logger:  logger.With("system", "storage"),
	}

	if cfg.Azure.Enabled() {
		az, err := NewAzure(&cfg.Azure, logger)
		if err != nil {
			return nil, err
		}
		r.Register(SchemeAzure, az)
	}

	if cfg.S3.Enabled {
		s3, err := NewS3(ctx, &cfg.S3, logger)
		if err != nil {
			return nil, err
		}
		r.Register(SchemeS3, s3)
	}

	return r, nil
}

// Register binds sys to scheme, replacing any existing backend.
func (r *Resolver) Register(scheme string, sys System) {
	r.systems[scheme] = sys
}

// Open resolves ref and opens it. References without a recognized scheme are
// treated as local paths.
func (r *Resolver) Open(ctx context.Context, ref string) (*Object, error) {
	scheme, key := ParseRef(ref)

	sys, ok := r.systems[scheme]
	if !ok {
		return nil, fmt.Errorf("%s: %w", scheme, ErrNotConfigured)
	}

	obj, err := sys.Open(ctx, key)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("object opened", "ref", ref, "name", obj.Name, "size", obj.Size)
	return obj, nil
}

// ParseRef splits ref into a scheme and a backend key.
func ParseRef(ref string) (scheme, key string) {
	for _, s := range []string{SchemeFile, SchemeAzure, SchemeS3} {
		if rest, ok := strings.CutPrefix(ref, s+"://"); ok {
			return s, rest
		}
	}
	return SchemeFile, ref
}

// splitKey separates a "container/name" key into its two parts.
func splitKey(key string) (string, string, error) {
	if key == "" {
		return "", "", ErrEmptyKey
	}
	if slices.Contains(strings.Split(key, "/"), "..") {
		return "", "", ErrInvalidKey
	}

	container, name, ok := strings.Cut(key, "/")
	if !ok || container == "" || name == "" || strings.HasSuffix(name, "/") {
		return "", "", ErrInvalidKey
	}
	return container, name, nil
}

func baseName(key string) string {
	return path.Base(key)
}
