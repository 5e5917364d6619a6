package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

const concatListName = "files.txt"

// Assembler concatenates manifest images into an H.264 video.
type Assembler struct {
	ffmpeg string
	fps    int
	logger *slog.Logger
	run    CommandRunner
}

// NewAssembler constructs an Assembler for the given ffmpeg binary and frame rate.
func NewAssembler(ffmpeg string, fps int, logger *slog.Logger) *Assembler {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	if fps <= 0 {
		fps = 24
	}
	return &Assembler{
		ffmpeg: ffmpeg,
		fps:    fps,
		logger: logging.NewComponentLogger(logger, "assembler"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (a *Assembler) WithCommandRunner(r CommandRunner) {
	if a != nil && r != nil {
		a.run = r
	}
}

// Assemble encodes manifest into output. Scratch files live in a hidden
// directory beside output and are removed before Assemble returns. The encoder
// writes to a hidden partial file that replaces output only on success, so a
// failed run leaves any previous output untouched.
func (a *Assembler) Assemble(ctx context.Context, manifest timeline.Manifest, output string) error {
	if len(manifest) == 0 {
		return services.Wrap(services.ErrValidation, "assembling", "assemble", "manifest is empty", nil)
	}
	outDir := filepath.Dir(output)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return services.Wrap(services.ErrEncoding, "assembling", "prepare output", outDir, err)
	}

	scratch := filepath.Join(outDir, ".scratch-"+scratchID(ctx))
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return services.Wrap(services.ErrEncoding, "assembling", "create scratch", scratch, err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			a.logger.Warn("failed to remove scratch directory",
				logging.String("path", scratch),
				logging.Error(err),
				logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
			)
		}
	}()

	names := make([]string, len(manifest))
	for i, entry := range manifest {
		names[i] = fmt.Sprintf("img%04d.png", i)
		if err := fileutil.CopyFile(entry.AssetPath, filepath.Join(scratch, names[i])); err != nil {
			return services.Wrap(services.ErrEncoding, "assembling", "stage asset", entry.AssetPath, err)
		}
	}

	listPath := filepath.Join(scratch, concatListName)
	if err := os.WriteFile(listPath, []byte(ConcatList(manifest, names, a.fps)), 0o644); err != nil {
		return services.Wrap(services.ErrEncoding, "assembling", "write concat list", listPath, err)
	}

	partial := partialPath(output)
	args := a.Args(listPath, partial)
	a.logger.Info("assembling video",
		logging.String(logging.FieldEventType, "assemble_start"),
		logging.Int("images", len(manifest)),
		logging.Duration("expected_duration", manifest.Total()),
		logging.String("output", output),
	)
	a.logger.Debug("executing ffmpeg", logging.String("args", strings.Join(args, " ")))

	if err := a.run(ctx, a.ffmpeg, args...); err != nil {
		_ = os.Remove(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classifyRunError("assembling", a.ffmpeg, err)
	}
	if _, err := os.Stat(partial); err != nil {
		return services.Wrap(services.ErrEncoding, "assembling", a.ffmpeg, "encoder did not produce output", err)
	}
	if err := os.Rename(partial, output); err != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrEncoding, "assembling", "replace video", output, err)
	}
	a.logger.Info("video assembled",
		logging.String(logging.FieldEventType, "assemble_complete"),
		logging.String("output", output),
	)
	return nil
}

// Args returns the deterministic ffmpeg argument list for a concat list.
func (a *Assembler) Args(listPath, output string) []string {
	fps := strconv.Itoa(a.fps)
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-r", fps,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-profile:v", "main",
		"-preset", "medium",
		"-crf", "23",
		"-movflags", "+faststart",
		"-g", strconv.Itoa(2 * a.fps),
		output,
	}
}

// ConcatList renders the concat-demuxer script for manifest. Each entry's
// duration is rounded to whole frames, and the final file is listed a second
// time because the demuxer ignores the last duration otherwise.
func ConcatList(manifest timeline.Manifest, names []string, fps int) string {
	var b strings.Builder
	for i, entry := range manifest {
		frames := math.Round(entry.Duration.Seconds() * float64(fps))
		if frames < 1 {
			frames = 1
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(names[i]))
		fmt.Fprintf(&b, "duration %s\n", strconv.FormatFloat(frames/float64(fps), 'f', 6, 64))
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(names[len(names)-1]))
	}
	return b.String()
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func scratchID(ctx context.Context) string {
	if id, ok := services.RunIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}

// partialPath returns the file ffmpeg encodes into before it replaces output.
func partialPath(output string) string {
	return hiddenSibling(output, "partial")
}
