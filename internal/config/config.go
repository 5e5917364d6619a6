package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	AssetsDir string `toml:"assets_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// ImageAPI contains configuration for the image generation service.
type ImageAPI struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	Quality         string `toml:"quality"`
	Style           string `toml:"style"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	RequestTimeout  int    `toml:"request_timeout"`
	DownloadTimeout int    `toml:"download_timeout"`
}

// Generation contains asset generation behaviour.
type Generation struct {
	StylePreset       string `toml:"style_preset"`
	MaxAttempts       int    `toml:"max_attempts"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	ThrottleSeconds   int    `toml:"throttle_seconds"`
	Force             bool   `toml:"force"`
	TimestampSubdir   bool   `toml:"timestamp_subdir"`
}

// Video contains assembly and captioning settings.
type Video struct {
	FPS            int     `toml:"fps"`
	ImageDuration  float64 `toml:"image_duration"`
	Crossfade      float64 `toml:"crossfade"`
	VideoName      string  `toml:"video_name"`
	CaptionsName   string  `toml:"captions_name"`
	CaptionStyle   string  `toml:"caption_style"`
	Captions       bool    `toml:"captions"`
	FFmpegBinary   string  `toml:"ffmpeg_binary"`
	FFprobeBinary  string  `toml:"ffprobe_binary"`
	MinFreeSpaceMB int     `toml:"min_free_space_mb"`
}

// Scenes contains scene source settings.
type Scenes struct {
	Source   string   `toml:"source"`
	Denylist []string `toml:"denylist"`
	Limit    int      `toml:"limit"`
}

// Archive controls the optional AV1 archive encode of the final video.
type Archive struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// API contains the run history HTTP server settings.
type API struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: asset, output, log, and state directories
//   - ImageAPI: image generation endpoint, credentials, and request shape
//   - Generation: retry, throttle, and caching behaviour
//   - Video: encoder settings, durations, and output naming
//   - Scenes: scene document location and filtering
//   - Archive: optional AV1 archive copy of the final video
//   - API: run history server bind address
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	ImageAPI   ImageAPI   `toml:"image_api"`
	Generation Generation `toml:"generation"`
	Video      Video      `toml:"video"`
	Scenes     Scenes     `toml:"scenes"`
	Archive    Archive    `toml:"archive"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a pipeline run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.AssetsDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir}
	if c.Archive.Enabled {
		dirs = append(dirs, c.Archive.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StyleSuffix returns the prompt modifier for the configured style preset.
func (c *Config) StyleSuffix() string {
	return StylePresets[c.Generation.StylePreset]
}

// RequestTimeout returns the generation request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.ImageAPI.RequestTimeout) * time.Second
}

// DownloadTimeout returns the artifact download timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.ImageAPI.DownloadTimeout) * time.Second
}

// RetryDelay returns the fixed backoff between generation attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Generation.RetryDelaySeconds) * time.Second
}

// Throttle returns the delay enforced between consecutive generation requests.
func (c *Config) Throttle() time.Duration {
	return time.Duration(c.Generation.ThrottleSeconds) * time.Second
}

// VideoPath returns the final video location.
func (c *Config) VideoPath() string {
	return filepath.Join(c.Paths.OutputDir, c.Video.VideoName)
}

// CaptionsPath returns the subtitle file location.
func (c *Config) CaptionsPath() string {
	return filepath.Join(c.Paths.OutputDir, c.Video.CaptionsName)
}

// LedgerPath returns the run ledger database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "reelsmith.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML with the API key redacted.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if redacted.ImageAPI.APIKey != "" {
		redacted.ImageAPI.APIKey = "********"
	}
	return toml.Marshal(redacted)
}
