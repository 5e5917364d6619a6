package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Overlay burns an SRT caption track into a video.
type Overlay struct {
	ffmpeg string
	style  string
	logger *slog.Logger
	run    CommandRunner
}

// NewOverlay constructs an Overlay. style is an ASS force_style string.
func NewOverlay(ffmpeg, style string, logger *slog.Logger) *Overlay {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	return &Overlay{
		ffmpeg: ffmpeg,
		style:  strings.TrimSpace(style),
		logger: logging.NewComponentLogger(logger, "overlay"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (o *Overlay) WithCommandRunner(r CommandRunner) {
	if o != nil && r != nil {
		o.run = r
	}
}

// Burn renders srt onto video in place. Every failure is returned as
// services.ErrPartialPipeline and leaves video untouched.
func (o *Overlay) Burn(ctx context.Context, video, srt string) error {
	if _, err := os.Stat(video); err != nil {
		return services.Wrap(services.ErrPartialPipeline, "captioning", "burn captions", "source video missing", err)
	}
	if _, err := os.Stat(srt); err != nil {
		return services.Wrap(services.ErrPartialPipeline, "captioning", "burn captions", "caption file missing", err)
	}

	side := SidePath(video)
	args := o.Args(video, srt, side)
	o.logger.Debug("executing ffmpeg", logging.String("args", strings.Join(args, " ")))

	if err := o.run(ctx, o.ffmpeg, args...); err != nil {
		_ = os.Remove(side)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrPartialPipeline, "captioning", "burn captions", "", classifyRunError("captioning", o.ffmpeg, err))
	}
	if _, err := os.Stat(side); err != nil {
		return services.Wrap(services.ErrPartialPipeline, "captioning", "burn captions", "encoder did not produce output", err)
	}
	if err := os.Rename(side, video); err != nil {
		_ = os.Remove(side)
		return services.Wrap(services.ErrPartialPipeline, "captioning", "replace video", "", err)
	}
	o.logger.Info("captions burned",
		logging.String(logging.FieldEventType, "captions_burned"),
		logging.String("video", video),
		logging.String("captions", srt),
	)
	return nil
}

// Args returns the ffmpeg argument list for burning srt onto video into side.
func (o *Overlay) Args(video, srt, side string) []string {
	filter := "subtitles=" + escapeFilterValue(srt)
	if o.style != "" {
		filter += ":force_style='" + o.style + "'"
	}
	return []string{
		"-y",
		"-i", video,
		"-vf", filter,
		"-c:v", "libx264",
		"-crf", "23",
		"-preset", "medium",
		"-c:a", "copy",
		side,
	}
}

// SidePath returns the temporary output used while captioning video. It keeps
// the extension so ffmpeg picks the same container.
func SidePath(video string) string {
	return hiddenSibling(video, "captioned")
}

func hiddenSibling(path, tag string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s%s", stem, tag, ext))
}

// escapeFilterValue quotes characters that the filtergraph parser treats as
// separators inside an option value.
func escapeFilterValue(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(value)
}
