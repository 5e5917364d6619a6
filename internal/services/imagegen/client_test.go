package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelsmith/internal/services"
)

func TestClientGenerateURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req generationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "dall-e-3" || req.N != 1 || req.Size != "1024x768" {
			t.Fatalf("unexpected request %+v", req)
		}
		if req.Quality != "standard" || req.Style != "vivid" {
			t.Fatalf("unexpected quality/style %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"url": "https://cdn.example/img.png"}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Width: 1024, Height: 768, Quality: "standard", Style: "vivid"})
	artifact, err := client.Generate(context.Background(), "A knight with coconuts")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if artifact.URL != "https://cdn.example/img.png" {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
}

func TestClientGenerateNon2xxIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Width: 1, Height: 1})
	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if code, ok := StatusCode(err); !ok || code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d %v", code, ok)
	}
}

func TestClientGenerateRequiresKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestClientGenerateEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Generate(context.Background(), "prompt"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error for empty data, got %v", err)
	}
}

func TestClientGenerateCanceledIsNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(ctx, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, services.ErrTransient) {
		t.Fatal("cancellation must not be marked transient")
	}
}

func TestClientRequestTimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, RequestTimeout: 50 * time.Millisecond})
	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient timeout, got %v", err)
	}
}

func TestClientDownloadURL(t *testing.T) {
	payload := []byte("\x89PNG fake")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method %s", r.Method)
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k"})
	var buf bytes.Buffer
	n, err := client.Download(context.Background(), Artifact{URL: server.URL + "/img.png"}, &buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len(payload)) || !bytes.Equal(buf.Bytes(), payload) {
		t.Fatalf("unexpected body %q", buf.Bytes())
	}
}

func TestClientDownloadNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewClient(Config{APIKey: "k"})
	_, err := client.Download(context.Background(), Artifact{URL: server.URL}, &bytes.Buffer{})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestClientDownloadInline(t *testing.T) {
	payload := []byte("inline png")
	client := NewClient(Config{APIKey: "k"})
	var buf bytes.Buffer
	if _, err := client.Download(context.Background(), Artifact{B64JSON: base64.StdEncoding.EncodeToString(payload)}, &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), payload) {
		t.Fatalf("unexpected inline bytes %q", buf.Bytes())
	}
}

func TestClientDownloadMalformedURLIsPerScene(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	_, err := client.Download(context.Background(), Artifact{URL: "http://[::1"}, &bytes.Buffer{})
	if !errors.Is(err, services.ErrPermanentAsset) {
		t.Fatalf("expected permanent asset error, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatalf("malformed url must not abort the run: %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestClientDownloadInlineWriteErrorIsPerScene(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	artifact := Artifact{B64JSON: base64.StdEncoding.EncodeToString([]byte("png"))}
	_, err := client.Download(context.Background(), artifact, failingWriter{})
	if !errors.Is(err, services.ErrPermanentAsset) || services.IsFatal(err) {
		t.Fatalf("expected non-fatal permanent asset error, got %v", err)
	}
}
