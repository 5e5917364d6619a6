package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/services"
)

const (
	defaultBaseURL         = "https://api.openai.com/v1/images/generations"
	defaultModel           = "dall-e-3"
	defaultRequestTimeout  = 60 * time.Second
	defaultDownloadTimeout = 30 * time.Second
	maxErrorBody           = 512
)

// Config captures the runtime settings required to talk to the image service.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Quality         string
	Style           string
	Width           int
	Height          int
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
}

// Client wraps the image generation API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an image client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaultDownloadTimeout
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Artifact is the generated image as returned by the provider: a URL to fetch,
// or the encoded bytes themselves.
type Artifact struct {
	URL           string
	B64JSON       string
	RevisedPrompt string
}

type generationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

type generationResponse struct {
	Data []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// StatusCode extracts the HTTP status from err when it came from a non-2xx
// response.
func StatusCode(err error) (int, bool) {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

// Generate submits a single generation request for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (Artifact, error) {
	var empty Artifact
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return empty, services.Wrap(services.ErrValidation, "generating", "image request", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "generating", "image request", "api key required", nil)
	}

	payload := generationRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		N:       1,
		Size:    fmt.Sprintf("%dx%d", c.cfg.Width, c.cfg.Height),
		Quality: c.cfg.Quality,
		Style:   c.cfg.Style,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, fmt.Errorf("image request: encode body: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return empty, services.Wrap(services.ErrConfiguration, "generating", "image request", "invalid image_api.base_url", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, c.transportError(ctx, "image request", c.cfg.RequestTimeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, c.transportError(ctx, "image request", c.cfg.RequestTimeout, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return empty, services.Wrap(services.ErrTransient, "generating", "image request", "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
		})
	}

	var parsed generationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return empty, services.Wrap(services.ErrTransient, "generating", "image request", "decode response", err)
	}
	if parsed.Error != nil {
		return empty, services.Wrap(services.ErrTransient, "generating", "image request", "api error: "+strings.TrimSpace(parsed.Error.Message), nil)
	}
	for _, item := range parsed.Data {
		artifact := Artifact{
			URL:           strings.TrimSpace(item.URL),
			B64JSON:       strings.TrimSpace(item.B64JSON),
			RevisedPrompt: strings.TrimSpace(item.RevisedPrompt),
		}
		if artifact.URL != "" || artifact.B64JSON != "" {
			return artifact, nil
		}
	}
	return empty, services.Wrap(services.ErrTransient, "generating", "image request", "response contained no image", nil)
}

// Download writes the artifact bytes to w. URL artifacts are fetched with the
// download timeout; inline artifacts are decoded.
func (c *Client) Download(ctx context.Context, artifact Artifact, w io.Writer) (int64, error) {
	if artifact.B64JSON != "" {
		decoded, err := base64.StdEncoding.DecodeString(artifact.B64JSON)
		if err != nil {
			return 0, services.Wrap(services.ErrTransient, "generating", "image download", "decode inline image", err)
		}
		n, err := w.Write(decoded)
		if err != nil {
			return int64(n), services.Wrap(services.ErrPermanentAsset, "generating", "image download", "write inline image", err)
		}
		return int64(n), nil
	}
	if artifact.URL == "" {
		return 0, services.Wrap(services.ErrTransient, "generating", "image download", "artifact has no url", nil)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, artifact.URL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrPermanentAsset, "generating", "image download", "invalid artifact url", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, c.transportError(ctx, "image download", c.cfg.DownloadTimeout, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, services.Wrap(services.ErrTransient, "generating", "image download", "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, c.transportError(ctx, "image download", c.cfg.DownloadTimeout, err)
	}
	return n, nil
}

// transportError leaves caller cancellation untouched so it is never retried;
// everything else, including our own per-request timeout, is transient.
func (c *Client) transportError(ctx context.Context, op string, timeout time.Duration, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return services.Wrap(services.ErrTransient, "generating", op, fmt.Sprintf("http error (timeout=%s)", timeout), err)
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
