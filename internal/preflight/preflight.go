package preflight

import (
	"context"
	"fmt"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a pipeline run depends on. They are cheap and
// local; none of them spend image API credits.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckSceneSource(cfg.Scenes.Source))
	results = append(results, CheckDirectoryAccess("Asset directory", cfg.Paths.AssetsDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Video.MinFreeSpaceMB > 0 {
		results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, uint64(cfg.Video.MinFreeSpaceMB)))
	}
	results = append(results, CheckAPIKey(cfg))

	for _, status := range CheckSystemDeps(ctx, cfg) {
		if status.Optional && !status.Available {
			continue
		}
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: depDetail(status),
		})
	}
	return results
}

// CheckSystemDeps evaluates the encoder binaries named in cfg. Both the
// deps command and RunAll use this list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.FFmpegRequirements(cfg.Video.FFmpegBinary, cfg.Video.FFprobeBinary))
}

// Failures returns the results that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Summarize joins failed checks into a single line.
func Summarize(failed []Result) string {
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return strings.Join(parts, "; ")
}

func depDetail(status deps.Status) string {
	if status.Available {
		return status.Path
	}
	return status.Detail
}
