package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/preflight"
	"reelsmith/internal/workflow"
)

type runOverrides struct {
	force      bool
	timestamp  bool
	noCaptions bool
	archive    bool
	style      string
	source     string
	limit      int
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var overrides runOverrides

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate images for every scene and assemble the captioned video",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overrides.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if failed := preflight.Failures(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				for _, result := range failed {
					fmt.Fprintln(out, renderStatusLine(result.Name, statusError, result.Detail, colorize))
				}
				return fmt.Errorf("preflight failed: %s", preflight.Summarize(failed))
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			base := cmd.Context()
			if base == nil {
				base = context.Background()
			}
			signalCtx, cancel := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runner := workflow.NewRunner(cfg,
				workflow.WithLogger(logger),
				workflow.WithLedger(store),
			)
			report, runErr := runner.Run(signalCtx)
			printReport(out, report, colorize)
			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					logger.Info("run canceled; generated images were kept",
						logging.String(logging.FieldEventType, "run_canceled"),
						logging.String("assets_dir", report.AssetsDir),
					)
				}
				return runErr
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&overrides.force, "force", false, "Regenerate images even when they already exist")
	flags.BoolVar(&overrides.timestamp, "timestamp", false, "Write images into a timestamped subfolder of the assets dir")
	flags.BoolVar(&overrides.noCaptions, "no-captions", false, "Skip burning captions into the video (the .srt is still written)")
	flags.BoolVar(&overrides.archive, "archive", false, "Produce an AV1 archive copy with Drapto after the run")
	flags.StringVar(&overrides.style, "style", "", fmt.Sprintf("Style preset (%s)", strings.Join(config.StylePresetNames(), ", ")))
	flags.StringVar(&overrides.source, "source", "", "Scene document (markdown or .toml)")
	flags.IntVar(&overrides.limit, "limit", 0, "Only process the first N scenes")
	return cmd
}

func (o runOverrides) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("force") {
		cfg.Generation.Force = o.force
	}
	if flags.Changed("timestamp") {
		cfg.Generation.TimestampSubdir = o.timestamp
	}
	if flags.Changed("no-captions") {
		cfg.Video.Captions = !o.noCaptions
	}
	if flags.Changed("archive") {
		cfg.Archive.Enabled = o.archive
	}
	if flags.Changed("style") {
		cfg.Generation.StylePreset = strings.ToLower(strings.TrimSpace(o.style))
	}
	if flags.Changed("source") {
		source, err := config.ExpandPath(o.source)
		if err != nil {
			return fmt.Errorf("resolve scene source: %w", err)
		}
		cfg.Scenes.Source = source
	}
	if flags.Changed("limit") {
		if o.limit < 0 {
			return errors.New("--limit must not be negative")
		}
		cfg.Scenes.Limit = o.limit
	}
	return cfg.Validate()
}

func printReport(out io.Writer, report workflow.Report, colorize bool) {
	kind := statusOK
	switch {
	case report.State == workflow.StateAborted:
		kind = statusError
	case !report.State.Terminal():
		kind = statusWarn
	case len(report.Warnings) > 0:
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Run", kind, fmt.Sprintf("%s (%s)", report.State, report.RunID), colorize))
	fmt.Fprintln(out, renderStatusLine("Scenes", statusInfo, fmt.Sprintf("%d extracted, %d images, %d dropped", len(report.Scenes), len(report.Assets), len(report.Failures)), colorize))
	if report.VideoPath != "" {
		fmt.Fprintln(out, renderStatusLine("Video", statusOK, report.VideoPath, colorize))
	}
	if report.CaptionsPath != "" {
		fmt.Fprintln(out, renderStatusLine("Captions", statusOK, report.CaptionsPath, colorize))
	}
	if report.ArchivePath != "" {
		fmt.Fprintln(out, renderStatusLine("Archive", statusOK, report.ArchivePath, colorize))
	}
	for _, warning := range report.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
	if len(report.Scenes) == 0 && report.State == workflow.StateDone {
		fmt.Fprintln(out, renderStatusLine("Result", statusInfo, "nothing to generate", colorize))
	}
}
