// Package files wraps the Tenable.io file endpoints.
package files

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/JaimeStill/tenable/pkg/apierror"
	"github.com/JaimeStill/tenable/pkg/formatting"
	"github.com/JaimeStill/tenable/pkg/metrics"
	"github.com/JaimeStill/tenable/pkg/session"
)

const (
	// UploadPath is the endpoint accepting multipart file uploads.
	UploadPath = "file/upload"
	// FieldName is the multipart form field carrying the file content.
	FieldName = "Filedata"
	// EncryptedField is the multipart form field carrying the encryption flag.
	EncryptedField = "no_enc"

	sniffLen = 3072
)

// Poster issues POST requests against the API.
type Poster interface {
	Post(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error)
}

// UploadResponse is the body returned by file/upload.
type UploadResponse struct {
	FileUploaded string `json:"fileuploaded"`
}

// API exposes the file endpoints.
type API struct {
	client  Poster
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a file API over client. metrics may be nil.
func New(client Poster, logger *slog.Logger, m *metrics.Collector) *API {
	return &API{
		client:  client,
		logger:  logger.With("api", "files"),
		metrics: m,
	}
}

// Upload streams r to Tenable.io as name and returns the name the platform
// stored it under, for use in subsequent import calls. Set encrypted when the
// file content is encrypted. The part content type is sniffed from r.
func (a *API) Upload(ctx context.Context, name string, r io.Reader, encrypted bool) (string, error) {
	return a.UploadAs(ctx, name, "", r, encrypted)
}

// UploadAs is Upload with a known content type for the file part. An empty or
// generic contentType falls back to sniffing. r is not read after UploadAs
// returns.
func (a *API) UploadAs(ctx context.Context, name, contentType string, r io.Reader, encrypted bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", apierror.UnexpectedValue("name", name, "must not be empty")
	}
	if r == nil {
		return "", apierror.UnexpectedValue("reader", r, "must not be nil")
	}

	body := newFormBody(name, contentType, r, encrypted)
	defer body.finish()

	resp, err := a.client.Post(ctx, UploadPath, body, body.contentType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	out, err := session.DecodeJSON[UploadResponse](resp)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if out.FileUploaded == "" {
		return "", fmt.Errorf("upload %s: %w", name, ErrMissingField)
	}

	size, complete := body.finish()
	if complete {
		a.metrics.ObserveUpload(size)
	}
	a.logger.Info(
		"file uploaded",
		"name", name,
		"fileuploaded", out.FileUploaded,
		"size", formatting.FormatBytes(size, 1),
		"complete", complete,
		"encrypted", encrypted,
	)

	return out.FileUploaded, nil
}

// UploadFile uploads the local file at path under its base name.
func (a *API) UploadFile(ctx context.Context, path string, encrypted bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return a.Upload(ctx, filepath.Base(path), f, encrypted)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// formBody streams the multipart form through a pipe so large scan exports
// are never held in memory.
type formBody struct {
	*io.PipeReader
	contentType string
	counter     *countingReader
	done        chan struct{}
	complete    bool
}

func newFormBody(name, partType string, r io.Reader, encrypted bool) *formBody {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	b := &formBody{
		PipeReader:  pr,
		contentType: mw.FormDataContentType(),
		counter:     &countingReader{r: r},
		done:        make(chan struct{}),
	}

	go func() {
		defer close(b.done)
		err := writeForm(mw, name, partType, b.counter, encrypted)
		b.complete = err == nil
		pw.CloseWithError(err)
	}()

	return b
}

// finish stops the writer and waits for it to exit, so the source reader is
// never touched afterwards. It reports the file bytes consumed and whether
// the whole form was written. Safe to call more than once.
func (b *formBody) finish() (int64, bool) {
	b.CloseWithError(errBodyFinished)
	<-b.done
	return b.counter.n, b.complete
}

func writeForm(mw *multipart.Writer, name, partType string, r io.Reader, encrypted bool) error {
	if err := mw.WriteField(EncryptedField, encryptedValue(encrypted)); err != nil {
		return err
	}

	br := bufio.NewReaderSize(r, sniffLen)
	if generic(partType) {
		head, err := br.Peek(sniffLen)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return fmt.Errorf("read %s: %w", name, err)
		}
		partType = mimetype.Detect(head).String()
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="%s"; filename="%s"`,
		FieldName, escapeQuotes(filepath.Base(name)),
	))
	h.Set("Content-Type", partType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, br); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	return mw.Close()
}

// generic reports whether contentType carries no information worth keeping.
func generic(contentType string) bool {
	switch contentType {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}

func encryptedValue(encrypted bool) string {
	if encrypted {
		return "1"
	}
	return "0"
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
