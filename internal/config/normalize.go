package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImageAPI()
	c.normalizeGeneration()
	c.normalizeVideo()
	if err := c.normalizeScenes(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Archive.Dir) == "" {
		c.Archive.Dir = defaultArchiveDir
	}
	if c.Archive.Dir, err = expandPath(c.Archive.Dir); err != nil {
		return fmt.Errorf("archive.dir: %w", err)
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeImageAPI() {
	c.ImageAPI.APIKey = strings.TrimSpace(c.ImageAPI.APIKey)
	if c.ImageAPI.APIKey == "" {
		for _, name := range []string{"REELSMITH_API_KEY", "OPENAI_API_KEY"} {
			if value := strings.TrimSpace(os.Getenv(name)); value != "" {
				c.ImageAPI.APIKey = value
				break
			}
		}
	}
	c.ImageAPI.BaseURL = strings.TrimSpace(c.ImageAPI.BaseURL)
	if c.ImageAPI.BaseURL == "" {
		c.ImageAPI.BaseURL = defaultImageBaseURL
	}
	c.ImageAPI.Model = strings.TrimSpace(c.ImageAPI.Model)
	if c.ImageAPI.Model == "" {
		c.ImageAPI.Model = defaultImageModel
	}
	c.ImageAPI.Quality = strings.ToLower(strings.TrimSpace(c.ImageAPI.Quality))
	if c.ImageAPI.Quality == "" {
		c.ImageAPI.Quality = defaultImageQuality
	}
	c.ImageAPI.Style = strings.ToLower(strings.TrimSpace(c.ImageAPI.Style))
	if c.ImageAPI.Style == "" {
		c.ImageAPI.Style = defaultImageStyle
	}
	if c.ImageAPI.RequestTimeout <= 0 {
		c.ImageAPI.RequestTimeout = defaultRequestTimeout
	}
	if c.ImageAPI.DownloadTimeout <= 0 {
		c.ImageAPI.DownloadTimeout = defaultDownloadTimeout
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.StylePreset = strings.ToLower(strings.TrimSpace(c.Generation.StylePreset))
	if c.Generation.StylePreset == "" {
		c.Generation.StylePreset = defaultStylePreset
	}
	if c.Generation.MaxAttempts <= 0 {
		c.Generation.MaxAttempts = defaultMaxAttempts
	}
	if c.Generation.RetryDelaySeconds < 0 {
		c.Generation.RetryDelaySeconds = 0
	}
	if c.Generation.ThrottleSeconds < 0 {
		c.Generation.ThrottleSeconds = 0
	}
}

func (c *Config) normalizeVideo() {
	c.Video.VideoName = strings.TrimSpace(c.Video.VideoName)
	if c.Video.VideoName == "" {
		c.Video.VideoName = defaultVideoName
	}
	c.Video.CaptionsName = strings.TrimSpace(c.Video.CaptionsName)
	if c.Video.CaptionsName == "" {
		c.Video.CaptionsName = defaultCaptionsName
	}
	c.Video.CaptionStyle = strings.TrimSpace(c.Video.CaptionStyle)
	c.Video.FFmpegBinary = strings.TrimSpace(c.Video.FFmpegBinary)
	if c.Video.FFmpegBinary == "" {
		c.Video.FFmpegBinary = defaultFFmpegBinary
	}
	c.Video.FFprobeBinary = strings.TrimSpace(c.Video.FFprobeBinary)
	if c.Video.FFprobeBinary == "" {
		c.Video.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Video.Crossfade < 0 {
		c.Video.Crossfade = 0
	}
	if c.Video.MinFreeSpaceMB < 0 {
		c.Video.MinFreeSpaceMB = 0
	}
}

func (c *Config) normalizeScenes() error {
	source := strings.TrimSpace(c.Scenes.Source)
	if source != "" {
		expanded, err := expandPath(source)
		if err != nil {
			return fmt.Errorf("scenes.source: %w", err)
		}
		source = expanded
	}
	c.Scenes.Source = source

	titles := make([]string, 0, len(c.Scenes.Denylist))
	seen := make(map[string]struct{}, len(c.Scenes.Denylist))
	for _, title := range c.Scenes.Denylist {
		trimmed := strings.TrimSpace(title)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		titles = append(titles, trimmed)
	}
	c.Scenes.Denylist = titles
	if c.Scenes.Limit < 0 {
		c.Scenes.Limit = 0
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
