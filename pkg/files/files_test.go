package files_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/tenable/pkg/apierror"
	"github.com/JaimeStill/tenable/pkg/files"
	"github.com/JaimeStill/tenable/pkg/metrics"
	"github.com/JaimeStill/tenable/pkg/session"
)

const nessusExport = `<?xml version="1.0" ?>
<NessusClientData_v2>
<Report name="weekly"></Report>
</NessusClientData_v2>
`

type received struct {
	path        string
	noEnc       string
	filename    string
	contentType string
	content     string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uploadServer(t *testing.T, got *received, status int, response string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got.noEnc = r.FormValue(files.EncryptedField)

		file, header, err := r.FormFile(files.FieldName)
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, _ := io.ReadAll(file)
		got.filename = header.Filename
		got.contentType = header.Header.Get("Content-Type")
		got.content = string(data)

		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
}

func newAPI(t *testing.T, url string, m *metrics.Collector) *files.API {
	t.Helper()

	cfg := &session.Config{URL: url}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	s, err := session.New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	return files.New(s, discardLogger(), m)
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name      string
		encrypted bool
		wantNoEnc string
	}{
		{"plain", false, "0"},
		{"encrypted", true, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got received
			srv := uploadServer(t, &got, http.StatusOK, `{"fileuploaded":"weekly_7f3c.nessus"}`)
			defer srv.Close()

			api := newAPI(t, srv.URL, nil)
			name, err := api.Upload(context.Background(), "weekly.nessus", strings.NewReader(nessusExport), tt.encrypted)
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}

			if name != "weekly_7f3c.nessus" {
				t.Errorf("Upload() = %q, want weekly_7f3c.nessus", name)
			}
			if got.path != "/file/upload" {
				t.Errorf("path = %q, want /file/upload", got.path)
			}
			if got.noEnc != tt.wantNoEnc {
				t.Errorf("no_enc = %q, want %q", got.noEnc, tt.wantNoEnc)
			}
			if got.filename != "weekly.nessus" {
				t.Errorf("filename = %q, want weekly.nessus", got.filename)
			}
			if got.content != nessusExport {
				t.Errorf("content mismatch: %q", got.content)
			}
			if !strings.HasPrefix(got.contentType, "text/xml") {
				t.Errorf("part Content-Type = %q, want text/xml", got.contentType)
			}
		})
	}
}

func TestUploadLargeFile(t *testing.T) {
	var got received
	srv := uploadServer(t, &got, http.StatusOK, `{"fileuploaded":"big.bin"}`)
	defer srv.Close()

	content := strings.Repeat("0123456789abcdef", 64*1024)

	api := newAPI(t, srv.URL, nil)
	if _, err := api.Upload(context.Background(), "big.bin", strings.NewReader(content), false); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(got.content) != len(content) {
		t.Errorf("received %d bytes, want %d", len(got.content), len(content))
	}
}

func TestUploadRecordsMetrics(t *testing.T) {
	var got received
	srv := uploadServer(t, &got, http.StatusOK, `{"fileuploaded":"a.nessus"}`)
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m, err := metrics.New("tio", reg)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	api := newAPI(t, srv.URL, m)
	if _, err := api.Upload(context.Background(), "a.nessus", strings.NewReader(nessusExport), false); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if n := uploadSamples(t, reg); n != 1 {
		t.Errorf("upload_bytes samples = %d, want 1", n)
	}
}

func TestUploadAPIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"invalid input", http.StatusBadRequest, apierror.ErrInvalidInput},
		{"permission", http.StatusForbidden, apierror.ErrPermission},
		{"not found", http.StatusNotFound, apierror.ErrNotFound},
		{"server", http.StatusInternalServerError, apierror.ErrServer},
		{"unknown", http.StatusServiceUnavailable, apierror.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got received
			srv := uploadServer(t, &got, tt.status, `{"error":"rejected"}`)
			defer srv.Close()

			api := newAPI(t, srv.URL, nil)
			_, err := api.Upload(context.Background(), "scan.nessus", strings.NewReader(nessusExport), false)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Upload() error = %v, want kind %v", err, tt.want)
			}
		})
	}
}

func TestUploadMissingField(t *testing.T) {
	var got received
	srv := uploadServer(t, &got, http.StatusOK, `{"status":"ok"}`)
	defer srv.Close()

	api := newAPI(t, srv.URL, nil)
	_, err := api.Upload(context.Background(), "scan.nessus", strings.NewReader(nessusExport), false)
	if !errors.Is(err, files.ErrMissingField) {
		t.Fatalf("Upload() error = %v, want ErrMissingField", err)
	}
}

func TestUploadInvalidArguments(t *testing.T) {
	api := files.New(posterFunc(func(context.Context, string, io.Reader, string) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	}), discardLogger(), nil)

	tests := []struct {
		name   string
		file   string
		reader io.Reader
	}{
		{"empty name", "", strings.NewReader("x")},
		{"blank name", "   ", strings.NewReader("x")},
		{"nil reader", "scan.nessus", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := api.Upload(context.Background(), tt.file, tt.reader, false)
			if !errors.Is(err, apierror.ErrUnexpectedValue) {
				t.Errorf("Upload() error = %v, want ErrUnexpectedValue", err)
			}
		})
	}
}

func TestUploadReaderError(t *testing.T) {
	readErr := errors.New("disk gone")

	api := files.New(posterFunc(func(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error) {
		_, err := io.ReadAll(body)
		return nil, err
	}), discardLogger(), nil)

	_, err := api.Upload(context.Background(), "scan.nessus", failingReader{readErr}, false)
	if !errors.Is(err, readErr) {
		t.Fatalf("Upload() error = %v, want %v", err, readErr)
	}
}

func TestUploadFile(t *testing.T) {
	var got received
	srv := uploadServer(t, &got, http.StatusOK, `{"fileuploaded":"local.nessus"}`)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "local.nessus")
	if err := os.WriteFile(path, []byte(nessusExport), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	api := newAPI(t, srv.URL, nil)
	name, err := api.UploadFile(context.Background(), path, false)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if name != "local.nessus" {
		t.Errorf("UploadFile() = %q", name)
	}
	if got.filename != "local.nessus" {
		t.Errorf("filename = %q, want base name", got.filename)
	}
}

func TestUploadFileMissing(t *testing.T) {
	api := newAPI(t, "http://127.0.0.1:1", nil)
	_, err := api.UploadFile(context.Background(), filepath.Join(t.TempDir(), "absent.nessus"), false)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("UploadFile() error = %v, want os.ErrNotExist", err)
	}
}

func TestUploadAsContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"declared type wins", "text/csv", "text/csv"},
		{"generic type is sniffed", "application/octet-stream", "text/xml"},
		{"empty type is sniffed", "", "text/xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got received
			srv := uploadServer(t, &got, http.StatusOK, `{"fileuploaded":"weekly.nessus"}`)
			defer srv.Close()

			api := newAPI(t, srv.URL, nil)
			if _, err := api.UploadAs(context.Background(), "weekly.nessus", tt.contentType, strings.NewReader(nessusExport), false); err != nil {
				t.Fatalf("UploadAs() error = %v", err)
			}
			if !strings.HasPrefix(got.contentType, tt.want) {
				t.Errorf("part Content-Type = %q, want %s", got.contentType, tt.want)
			}
			if got.content != nessusExport {
				t.Errorf("content mismatch: %q", got.content)
			}
		})
	}
}

func TestUploadStopsReadingOnEarlyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":"forbidden"}`)
	}))
	defer srv.Close()

	src := &trackingReader{remaining: 64 << 20}

	api := newAPI(t, srv.URL, nil)
	_, err := api.Upload(context.Background(), "a.nessus", src, false)
	src.returned.Store(true)

	if !errors.Is(err, apierror.ErrPermission) {
		t.Fatalf("Upload() error = %v, want ErrPermission", err)
	}

	time.Sleep(50 * time.Millisecond)
	if n := src.late.Load(); n != 0 {
		t.Errorf("reads after Upload returned = %d, want 0", n)
	}
}

func TestUploadPartialBodySkipsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New("tio", reg)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	api := files.New(posterFunc(func(_ context.Context, _ string, body io.Reader, _ string) (*http.Response, error) {
		buf := make([]byte, 16)
		if _, err := io.ReadFull(body, buf); err != nil {
			return nil, err
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"fileuploaded":"big.bin"}`)),
		}, nil
	}), discardLogger(), m)

	content := strings.Repeat("x", 1<<20)
	if _, err := api.Upload(context.Background(), "big.bin", strings.NewReader(content), false); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if n := uploadSamples(t, reg); n != 0 {
		t.Errorf("upload_bytes samples = %d, want 0 for a partial body", n)
	}
}

func uploadSamples(t *testing.T, reg *prometheus.Registry) uint64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "tio_upload_bytes" {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}

type posterFunc func(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error)

func (f posterFunc) Post(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error) {
	return f(ctx, path, body, contentType)
}

type failingReader struct {
	err error
}

func (r failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

// trackingReader yields zeros and counts reads made once returned is set.
type trackingReader struct {
	remaining int
	returned  atomic.Bool
	late      atomic.Int32
}

func (r *trackingReader) Read(p []byte) (int, error) {
	if r.returned.Load() {
		r.late.Add(1)
	}
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	n := min(len(p), r.remaining)
	clear(p[:n])
	r.remaining -= n
	return n, nil
}
