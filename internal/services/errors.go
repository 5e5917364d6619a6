package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks a retryable failure from an external service.
	ErrTransient = errors.New("transient service error")
	// ErrPermanentAsset marks a scene whose asset could not be produced after
	// exhausting retries. The scene is dropped; the run continues.
	ErrPermanentAsset = errors.New("permanent asset error")
	// ErrMissingTool marks an external binary that is not installed.
	ErrMissingTool = errors.New("missing tool")
	// ErrEncoding marks an encoder process that exited non-zero.
	ErrEncoding = errors.New("encoding error")
	// ErrPartialPipeline marks a late-stage failure that leaves the prior
	// artifact in place.
	ErrPartialPipeline = errors.New("partial pipeline")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the whole run. Per-item failures and
// partial-pipeline warnings are absorbed by the workflow. Asset generation
// narrows this further and only stops a batch on configuration or missing-tool
// errors.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrPermanentAsset), errors.Is(err, ErrPartialPipeline):
		return false
	case errors.Is(err, ErrTransient):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
