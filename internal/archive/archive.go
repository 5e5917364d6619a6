// Package archive produces an optional AV1 archive copy of the finished video
// using the Drapto encoding library.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	draptolib "github.com/five82/drapto"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Encoder transcodes inputPath into outputDir and returns the written file.
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputDir string) (string, error)
}

// Library implements Encoder with the Drapto Go library.
type Library struct{}

// NewLibrary constructs a Library encoder.
func NewLibrary() *Library {
	return &Library{}
}

// Encode runs a Drapto encode. The output is <stem>.mkv inside outputDir.
func (l *Library) Encode(ctx context.Context, inputPath, outputDir string) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", errors.New("input path required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", errors.New("output directory required")
	}
	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return "", fmt.Errorf("init drapto: %w", err)
	}
	if _, err := encoder.EncodeWithReporter(ctx, inputPath, outputDir, nil); err != nil {
		return "", err
	}
	return OutputPath(inputPath, outputDir), nil
}

// OutputPath returns where Drapto writes the archive for inputPath.
func OutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(strings.TrimSpace(outputDir), stem+".mkv")
}

// Archiver wraps an Encoder with logging and failure classification.
type Archiver struct {
	encoder Encoder
	dir     string
	logger  *slog.Logger
}

// New constructs an Archiver writing into dir.
func New(encoder Encoder, dir string, logger *slog.Logger) *Archiver {
	if encoder == nil {
		encoder = NewLibrary()
	}
	return &Archiver{
		encoder: encoder,
		dir:     dir,
		logger:  logging.NewComponentLogger(logger, "archive"),
	}
}

// Archive encodes video into the archive directory. Failures are tagged
// services.ErrPartialPipeline because the primary video is already complete.
func (a *Archiver) Archive(ctx context.Context, video string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPartialPipeline, "archiving", "prepare archive dir", a.dir, err)
	}
	started := time.Now()
	a.logger.Info("archive encode started",
		logging.String(logging.FieldEventType, "archive_start"),
		logging.String("input", video),
		logging.String("output_dir", a.dir),
	)
	out, err := a.encoder.Encode(ctx, video, a.dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrPartialPipeline, "archiving", "drapto encode", "", err)
	}
	a.logger.Info("archive encode complete",
		logging.String(logging.FieldEventType, "archive_complete"),
		logging.String("output", out),
		logging.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}
