package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable. The API key is not checked here
// because commands that never reach the generation service (scenes, history,
// config show) must still load; see RequireAPIKey.
func (c *Config) Validate() error {
	if err := c.validateImageAPI(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey reports a descriptive error when no image API key is available.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.ImageAPI.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/reelsmith/config.toml"
	}
	return fmt.Errorf("image_api.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'reelsmith config init')", defaultPath)
}

func (c *Config) validateImageAPI() error {
	if c.ImageAPI.Width <= 0 || c.ImageAPI.Height <= 0 {
		return errors.New("image_api.width and image_api.height must be positive")
	}
	switch c.ImageAPI.Quality {
	case "standard", "hd":
	default:
		return fmt.Errorf("image_api.quality must be standard or hd, got %q", c.ImageAPI.Quality)
	}
	switch c.ImageAPI.Style {
	case "vivid", "natural":
	default:
		return fmt.Errorf("image_api.style must be vivid or natural, got %q", c.ImageAPI.Style)
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if _, ok := StylePresets[c.Generation.StylePreset]; !ok {
		return fmt.Errorf("generation.style_preset %q is unknown (valid: %s)", c.Generation.StylePreset, strings.Join(StylePresetNames(), ", "))
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.FPS <= 0 {
		return errors.New("video.fps must be positive")
	}
	if c.Video.ImageDuration <= 0 {
		return errors.New("video.image_duration must be positive (seconds)")
	}
	if c.Video.Crossfade >= c.Video.ImageDuration {
		return errors.New("video.crossfade must be shorter than video.image_duration")
	}
	if c.Video.VideoName == c.Video.CaptionsName {
		return errors.New("video.video_name and video.captions_name must differ")
	}
	return nil
}

// StylePresetNames returns the known style preset names in sorted order.
func StylePresetNames() []string {
	names := make([]string, 0, len(StylePresets))
	for name := range StylePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
