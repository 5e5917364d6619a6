package testsupport

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ImageServer is a fake image generation endpoint that answers every request
// with a distinct inline image.
type ImageServer struct {
	*httptest.Server

	mu         sync.Mutex
	prompts    []string
	failPrompt string
}

// NewImageServer starts an ImageServer and registers cleanup.
func NewImageServer(t testing.TB) *ImageServer {
	t.Helper()

	s := &ImageServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FailPrompts makes requests whose prompt contains sub return 500.
func (s *ImageServer) FailPrompts(sub string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPrompt = sub
}

// Prompts returns the prompts received so far.
func (s *ImageServer) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Requests returns how many generation requests were received.
func (s *ImageServer) Requests() int {
	return len(s.Prompts())
}

func (s *ImageServer) handle(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &payload)

	s.mu.Lock()
	s.prompts = append(s.prompts, payload.Prompt)
	n := len(s.prompts)
	fail := s.failPrompt != "" && strings.Contains(payload.Prompt, s.failPrompt)
	s.mu.Unlock()

	if fail {
		http.Error(w, "upstream unavailable", http.StatusInternalServerError)
		return
	}
	image := []byte{0x89, 'P', 'N', 'G', byte(n)}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(image)}},
	})
}
