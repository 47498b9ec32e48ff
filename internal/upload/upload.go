// Package upload runs batches of file uploads from storage references to Tenable.io.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/tenable/pkg/formatting"
	"github.com/JaimeStill/tenable/pkg/storage"
)

// Uploader sends a named stream to the platform and returns the stored name.
// An empty contentType asks the uploader to detect it.
type Uploader interface {
	UploadAs(ctx context.Context, name, contentType string, r io.Reader, encrypted bool) (string, error)
}

// Opener resolves a reference to an open object.
type Opener interface {
	Open(ctx context.Context, ref string) (*storage.Object, error)
}

// Options control a batch run.
type Options struct {
	Concurrency int
	MaxSize     int64
	Encrypted   bool
}

// Result is the outcome for a single reference.
type Result struct {
	Ref          string
	FileUploaded string
	Size         int64
	Err          error
}

// Service uploads storage references through an Uploader.
type Service struct {
	files  Uploader
	store  Opener
	logger *slog.Logger
}

// New creates a Service.
func New(files Uploader, store Opener, logger *slog.Logger) *Service {
	return &Service{
		files:  files,
		store:  store,
		logger: logger.With("system", "upload"),
	}
}

// Run uploads every ref with at most opts.Concurrency in flight. Results are
// returned in the order of refs. A failing ref is recorded in its Result and
// does not stop the others; only cancellation of ctx ends the batch early.
func (s *Service) Run(ctx context.Context, refs []string, opts Options) []Result {
	results := make([]Result, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))

	for i, ref := range refs {
		g.Go(func() error {
			results[i] = s.one(ctx, ref, opts)
			return nil
		})
	}
	g.Wait()

	return results
}

func (s *Service) one(ctx context.Context, ref string, opts Options) Result {
	res := Result{Ref: ref, Size: -1}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	obj, err := s.store.Open(ctx, ref)
	if err != nil {
		res.Err = err
		s.logger.Error("open failed", "ref", ref, "error", err)
		return res
	}
	defer obj.Close()

	res.Size = obj.Size

	var r io.Reader = obj
	if opts.MaxSize > 0 {
		if obj.Size > opts.MaxSize {
			res.Err = fmt.Errorf("%s (%s): %w", ref, formatting.FormatBytes(obj.Size, 1), ErrFileTooLarge)
			s.logger.Error("upload rejected", "ref", ref, "error", res.Err)
			return res
		}
		r = &limitReader{r: obj, remaining: opts.MaxSize}
	}

	name, err := s.files.UploadAs(ctx, obj.Name, obj.ContentType, r, opts.Encrypted)
	if err != nil {
		res.Err = err
		s.logger.Error("upload failed", "ref", ref, "error", err)
		return res
	}

	res.FileUploaded = name
	return res
}

// limitReader fails with ErrFileTooLarge once more than remaining bytes are
// read, covering sources that do not report a size.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}
