package upload_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/tenable/internal/upload"
	"github.com/JaimeStill/tenable/pkg/apierror"
	"github.com/JaimeStill/tenable/pkg/storage"
)

type mockOpener struct {
	objects map[string]string
	sizes   map[string]int64
	types   map[string]string
}

func (m *mockOpener) Open(_ context.Context, ref string) (*storage.Object, error) {
	content, ok := m.objects[ref]
	if !ok {
		return nil, storage.ErrNotFound
	}
	size := int64(len(content))
	if s, ok := m.sizes[ref]; ok {
		size = s
	}
	return &storage.Object{
		ReadCloser:  io.NopCloser(strings.NewReader(content)),
		Name:        ref + ".nessus",
		Size:        size,
		ContentType: m.types[ref],
	}, nil
}

type mockUploader struct {
	uploadFn func(ctx context.Context, name string, r io.Reader, encrypted bool) (string, error)
	types    sync.Map
}

func (m *mockUploader) UploadAs(ctx context.Context, name, contentType string, r io.Reader, encrypted bool) (string, error) {
	m.types.Store(name, contentType)
	return m.uploadFn(ctx, name, r, encrypted)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun(t *testing.T) {
	opener := &mockOpener{objects: map[string]string{
		"a": "alpha",
		"b": "bravo",
		"c": "charlie",
	}}

	var mu sync.Mutex
	received := map[string]string{}

	uploader := &mockUploader{uploadFn: func(_ context.Context, name string, r io.Reader, encrypted bool) (string, error) {
		if !encrypted {
			t.Error("encrypted flag not forwarded")
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		mu.Lock()
		received[name] = string(data)
		mu.Unlock()
		return "stored_" + name, nil
	}}

	svc := upload.New(uploader, opener, discardLogger())
	results := svc.Run(context.Background(), []string{"a", "b", "c"}, upload.Options{
		Concurrency: 2,
		Encrypted:   true,
	})

	if len(results) != 3 {
		t.Fatalf("results: got %d, want 3", len(results))
	}
	for i, ref := range []string{"a", "b", "c"} {
		res := results[i]
		if res.Ref != ref {
			t.Errorf("results[%d].Ref = %q, want %q (order preserved)", i, res.Ref, ref)
		}
		if res.Err != nil {
			t.Errorf("results[%d].Err = %v", i, res.Err)
		}
		if res.FileUploaded != "stored_"+ref+".nessus" {
			t.Errorf("results[%d].FileUploaded = %q", i, res.FileUploaded)
		}
		if res.Size != int64(len(opener.objects[ref])) {
			t.Errorf("results[%d].Size = %d", i, res.Size)
		}
	}
	if received["b.nessus"] != "bravo" {
		t.Errorf("received content for b: %q", received["b.nessus"])
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	opener := &mockOpener{objects: map[string]string{
		"ok":     "fine",
		"denied": "secret",
	}}

	uploader := &mockUploader{uploadFn: func(_ context.Context, name string, r io.Reader, _ bool) (string, error) {
		io.Copy(io.Discard, r)
		if name == "denied.nessus" {
			return "", &apierror.Error{Kind: apierror.ErrPermission, Code: 403}
		}
		return name, nil
	}}

	svc := upload.New(uploader, opener, discardLogger())
	results := svc.Run(context.Background(), []string{"missing", "denied", "ok"}, upload.Options{Concurrency: 1})

	if !errors.Is(results[0].Err, storage.ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", results[0].Err)
	}
	if !errors.Is(results[1].Err, apierror.ErrPermission) {
		t.Errorf("denied: got %v, want ErrPermission", results[1].Err)
	}
	if results[2].Err != nil || results[2].FileUploaded != "ok.nessus" {
		t.Errorf("ok: got %+v", results[2])
	}
}

func TestRunRejectsOversizedObjects(t *testing.T) {
	opener := &mockOpener{objects: map[string]string{"big": strings.Repeat("x", 100)}}

	called := false
	uploader := &mockUploader{uploadFn: func(context.Context, string, io.Reader, bool) (string, error) {
		called = true
		return "", nil
	}}

	svc := upload.New(uploader, opener, discardLogger())
	results := svc.Run(context.Background(), []string{"big"}, upload.Options{MaxSize: 10})

	if !errors.Is(results[0].Err, upload.ErrFileTooLarge) {
		t.Fatalf("got %v, want ErrFileTooLarge", results[0].Err)
	}
	if called {
		t.Error("uploader should not be called for oversized objects")
	}
}

func TestRunLimitsUnknownSize(t *testing.T) {
	opener := &mockOpener{
		objects: map[string]string{"stream": strings.Repeat("x", 100)},
		sizes:   map[string]int64{"stream": -1},
	}

	uploader := &mockUploader{uploadFn: func(_ context.Context, _ string, r io.Reader, _ bool) (string, error) {
		_, err := io.ReadAll(r)
		return "", err
	}}

	svc := upload.New(uploader, opener, discardLogger())
	results := svc.Run(context.Background(), []string{"stream"}, upload.Options{MaxSize: 10})

	if !errors.Is(results[0].Err, upload.ErrFileTooLarge) {
		t.Fatalf("got %v, want ErrFileTooLarge", results[0].Err)
	}
}

func TestRunExactLimit(t *testing.T) {
	opener := &mockOpener{
		objects: map[string]string{"exact": "0123456789"},
		sizes:   map[string]int64{"exact": -1},
	}

	uploader := &mockUploader{uploadFn: func(_ context.Context, name string, r io.Reader, _ bool) (string, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}}

	svc := upload.New(uploader, opener, discardLogger())
	results := svc.Run(context.Background(), []string{"exact"}, upload.Options{MaxSize: 10})

	if results[0].Err != nil {
		t.Fatalf("unexpected error: %v", results[0].Err)
	}
	if results[0].FileUploaded != "0123456789" {
		t.Errorf("content = %q", results[0].FileUploaded)
	}
}

func TestRunConcurrencyLimit(t *testing.T) {
	refs := []string{"a", "b", "c", "d", "e", "f"}
	objects := map[string]string{}
	for _, r := range refs {
		objects[r] = r
	}

	var inFlight, peak atomic.Int32
	uploader := &mockUploader{uploadFn: func(_ context.Context, name string, r io.Reader, _ bool) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return name, nil
	}}

	svc := upload.New(uploader, &mockOpener{objects: objects}, discardLogger())
	svc.Run(context.Background(), refs, upload.Options{Concurrency: 2})

	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uploader := &mockUploader{uploadFn: func(context.Context, string, io.Reader, bool) (string, error) {
		t.Error("no upload expected after cancellation")
		return "", nil
	}}

	svc := upload.New(uploader, &mockOpener{objects: map[string]string{"a": "x"}}, discardLogger())
	results := svc.Run(ctx, []string{"a"}, upload.Options{Concurrency: 1})

	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", results[0].Err)
	}
}

func TestRunForwardsContentType(t *testing.T) {
	opener := &mockOpener{
		objects: map[string]string{"typed": "a,b\n", "bare": "<x/>"},
		types:   map[string]string{"typed": "text/csv"},
	}

	uploader := &mockUploader{uploadFn: func(_ context.Context, name string, r io.Reader, _ bool) (string, error) {
		io.Copy(io.Discard, r)
		return name, nil
	}}

	svc := upload.New(uploader, opener, discardLogger())
	svc.Run(context.Background(), []string{"typed", "bare"}, upload.Options{Concurrency: 2})

	if v, _ := uploader.types.Load("typed.nessus"); v != "text/csv" {
		t.Errorf("typed content type = %v, want text/csv", v)
	}
	if v, _ := uploader.types.Load("bare.nessus"); v != "" {
		t.Errorf("bare content type = %v, want empty", v)
	}
}
