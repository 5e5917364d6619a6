package encoding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"reelsmith/internal/services"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, tail(strings.TrimSpace(string(output)), 2048))
	}
	return nil
}

// classifyRunError tags a runner failure as a missing tool or an encoder failure.
func classifyRunError(stage, binary string, err error) error {
	if isNotFound(err) {
		return services.Wrap(services.ErrMissingTool, stage, binary, fmt.Sprintf("binary %q not found; install ffmpeg or set video.ffmpeg_binary", binary), err)
	}
	return services.Wrap(services.ErrEncoding, stage, binary, "encoder exited with error", err)
}

func isNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr) && errors.Is(pathErr.Err, fs.ErrNotExist)
}

func tail(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return "..." + value[len(value)-limit:]
}
