package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/archive"
	"reelsmith/internal/assets"
	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/encoding"
	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/runlock"
	"reelsmith/internal/scenes"
	"reelsmith/internal/services"
	"reelsmith/internal/services/imagegen"
	"reelsmith/internal/timeline"
)

const (
	durationTolerance = time.Second
	timestampLayout   = "20060102_150405"
)

// Ledger is the subset of the run history store the Runner writes to.
type Ledger interface {
	BeginRun(ctx context.Context, run ledger.Run) error
	UpdateState(ctx context.Context, id, state string) error
	FinishRun(ctx context.Context, id string, summary ledger.RunSummary) error
	RecordAsset(ctx context.Context, outcome ledger.AssetOutcome) error
}

// Archiver produces the optional archive copy of the finished video.
type Archiver interface {
	Archive(ctx context.Context, video string) (string, error)
}

// Prober inspects a media file.
type Prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Report summarizes a run.
type Report struct {
	RunID        string
	State        State
	AssetsDir    string
	Scenes       []scenes.Scene
	Assets       []assets.Asset
	Failures     []assets.Failure
	Manifest     timeline.Manifest
	Cues         []timeline.Cue
	VideoPath    string
	CaptionsPath string
	ArchivePath  string
	Warnings     []string
}

// Runner executes the pipeline for one configuration.
type Runner struct {
	cfg       *config.Config
	images    assets.ImageService
	ledger    Ledger
	archiver  Archiver
	logger    *slog.Logger
	runner    encoding.CommandRunner
	prober    Prober
	toolCheck func(context.Context) error
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithImageService overrides the image client built from cfg.ImageAPI.
func WithImageService(images assets.ImageService) Option {
	return func(r *Runner) {
		if images != nil {
			r.images = images
		}
	}
}

// WithLedger records run history into l.
func WithLedger(l Ledger) Option {
	return func(r *Runner) {
		r.ledger = l
	}
}

// WithArchiver overrides the Drapto archiver used when archiving is enabled.
func WithArchiver(a Archiver) Option {
	return func(r *Runner) {
		r.archiver = a
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCommandRunner replaces how ffmpeg is executed.
func WithCommandRunner(cr encoding.CommandRunner) Option {
	return func(r *Runner) {
		r.runner = cr
	}
}

// WithProber replaces the ffprobe inspection used for the duration check.
func WithProber(p Prober) Option {
	return func(r *Runner) {
		r.prober = p
	}
}

// WithToolCheck replaces the encoder availability check run before generation.
func WithToolCheck(check func(context.Context) error) Option {
	return func(r *Runner) {
		r.toolCheck = check
	}
}

// WithSleeper overrides retry and throttle waits.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// WithClock overrides the clock used for timestamped asset folders.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner constructs a Runner for cfg.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewNop(),
		prober: ffprobe.Inspect,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.images == nil {
		r.images = imagegen.NewClient(imagegen.Config{
			APIKey:          cfg.ImageAPI.APIKey,
			BaseURL:         cfg.ImageAPI.BaseURL,
			Model:           cfg.ImageAPI.Model,
			Quality:         cfg.ImageAPI.Quality,
			Style:           cfg.ImageAPI.Style,
			Width:           cfg.ImageAPI.Width,
			Height:          cfg.ImageAPI.Height,
			RequestTimeout:  cfg.RequestTimeout(),
			DownloadTimeout: cfg.DownloadTimeout(),
		})
	}
	if r.toolCheck == nil {
		r.toolCheck = r.checkEncoder
	}
	r.logger = logging.NewComponentLogger(r.logger, "workflow")
	return r
}

// Run executes one pipeline run. The error is non-nil when the run was
// aborted, canceled, or could not start; the report is populated as far as
// the run got.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		State:     StateStart,
		AssetsDir: r.assetsDir(),
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	if err := os.MkdirAll(report.AssetsDir, 0o755); err != nil {
		return report, services.Wrap(services.ErrConfiguration, string(StateStart), "create assets dir", report.AssetsDir, err)
	}
	lock, err := runlock.Acquire(report.AssetsDir)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock",
				logging.String("path", lock.Path()),
				logging.Error(err),
				logging.String(logging.FieldEventType, "runlock_release_failed"),
			)
		}
	}()

	r.beginRun(ctx, report)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", r.cfg.Scenes.Source),
		logging.String("assets_dir", report.AssetsDir),
		logging.String("style_preset", r.cfg.Generation.StylePreset),
	)
	started := time.Now()

	runErr := r.execute(ctx, &report)
	r.finishRun(ctx, report, runErr)

	if runErr != nil {
		logging.ErrorWithContext(logger, "run stopped", "run_failed",
			logging.String("state", string(report.State)),
			logging.Error(runErr),
		)
		return report, runErr
	}
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("scenes", len(report.Scenes)),
		logging.Int("assets", len(report.Assets)),
		logging.Int("failures", len(report.Failures)),
		logging.Int("warnings", len(report.Warnings)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return report, nil
}

func (r *Runner) execute(ctx context.Context, report *Report) error {
	r.transition(ctx, report, StateExtracting)
	list, err := r.extract(ctx, report)
	if err != nil {
		return err
	}
	report.Scenes = list
	if len(list) == 0 {
		r.logger.Info("nothing to generate",
			logging.String(logging.FieldEventType, "no_scenes"),
			logging.String("source", r.cfg.Scenes.Source),
		)
		r.transition(ctx, report, StateDone)
		return nil
	}
	if err := r.toolCheck(ctx); err != nil {
		return err
	}

	r.transition(ctx, report, StateGenerating)
	generated, failures, err := r.generate(ctx, report.AssetsDir, list)
	report.Assets = generated
	report.Failures = failures
	for _, failure := range failures {
		report.Warnings = append(report.Warnings, fmt.Sprintf("scene %d %q dropped: %v", failure.Index, failure.Scene.Title, failure.Err))
	}
	if err != nil {
		return err
	}
	if len(generated) == 0 {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "nothing to generate", "no_assets",
			logging.Int("failures", len(failures)),
			logging.String(logging.FieldImpact, "no video produced"),
			logging.String(logging.FieldErrorHint, "check image_api settings and provider status"),
		)
		r.transition(ctx, report, StateDone)
		return nil
	}

	report.Manifest, report.Cues = timeline.Build(generated, timeline.Options{
		ImageDuration: timeline.Seconds(r.cfg.Video.ImageDuration),
		Crossfade:     timeline.Seconds(r.cfg.Video.Crossfade),
	})

	r.transition(ctx, report, StateAssembling)
	if err := r.assemble(ctx, report); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.transition(ctx, report, StateAborted)
		return err
	}

	r.transition(ctx, report, StateCaptioning)
	if err := r.caption(ctx, report); err != nil {
		return err
	}
	if r.cfg.Archive.Enabled {
		if err := r.archive(ctx, report); err != nil {
			return err
		}
	}
	r.transition(ctx, report, StateDone)
	return nil
}

func (r *Runner) extract(ctx context.Context, report *Report) ([]scenes.Scene, error) {
	list, err := scenes.LoadFile(r.cfg.Scenes.Source, scenes.ExtractOptions{Denylist: r.cfg.Scenes.Denylist})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, string(StateExtracting), "load scenes", r.cfg.Scenes.Source, err)
	}
	if limit := r.cfg.Scenes.Limit; limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	logger := logging.WithContext(ctx, r.logger)
	if dups := scenes.DuplicateTitles(list); len(dups) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("duplicate scene titles: %v", dups))
		logging.WarnWithContext(logger, "duplicate scene titles", "duplicate_titles",
			logging.Any("titles", dups),
			logging.String(logging.FieldImpact, "captions may be ambiguous"),
		)
	}
	logger.Info("scenes extracted",
		logging.String(logging.FieldEventType, "scenes_extracted"),
		logging.Int("count", len(list)),
	)
	return list, nil
}

func (r *Runner) generate(ctx context.Context, dir string, list []scenes.Scene) ([]assets.Asset, []assets.Failure, error) {
	opts := []assets.Option{assets.WithLogger(r.logger), assets.WithSleeper(r.sleep)}
	if r.ledger != nil {
		opts = append(opts, assets.WithRecorder(r.ledger))
	}
	gen := assets.NewGenerator(r.images, assets.Options{
		Dir:         dir,
		StyleSuffix: r.cfg.StyleSuffix(),
		MaxAttempts: r.cfg.Generation.MaxAttempts,
		RetryDelay:  r.cfg.RetryDelay(),
		Throttle:    r.cfg.Throttle(),
		Force:       r.cfg.Generation.Force,
	}, opts...)
	return gen.GenerateAll(services.WithStage(ctx, string(StateGenerating)), list)
}

func (r *Runner) assemble(ctx context.Context, report *Report) error {
	asm := encoding.NewAssembler(r.cfg.Video.FFmpegBinary, r.cfg.Video.FPS, r.logger)
	if r.runner != nil {
		asm.WithCommandRunner(r.runner)
	}
	video := r.cfg.VideoPath()
	if err := asm.Assemble(services.WithStage(ctx, string(StateAssembling)), report.Manifest, video); err != nil {
		return err
	}
	report.VideoPath = video
	r.verifyDuration(ctx, report)
	return nil
}

// verifyDuration warns when the encoded length drifts from the manifest.
// A missing ffprobe only skips the check.
func (r *Runner) verifyDuration(ctx context.Context, report *Report) {
	if r.prober == nil {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	result, err := r.prober(ctx, r.cfg.Video.FFprobeBinary, report.VideoPath)
	if err != nil {
		logger.Debug("duration check skipped", logging.Error(err))
		return
	}
	check := ffprobe.CheckDuration(result, report.Manifest.Total(), durationTolerance)
	if check.OK {
		return
	}
	report.Warnings = append(report.Warnings, fmt.Sprintf("video duration %s differs from expected %s", check.Actual, check.Expected))
	logging.WarnWithContext(logger, "video duration drift", "duration_drift",
		logging.Duration("expected", check.Expected),
		logging.Duration("actual", check.Actual),
		logging.Duration("drift", check.Drift),
		logging.String(logging.FieldImpact, "captions may not line up with images"),
	)
}

func (r *Runner) caption(ctx context.Context, report *Report) error {
	ctx = services.WithStage(ctx, string(StateCaptioning))
	path := r.cfg.CaptionsPath()
	if err := timeline.WriteSRTFile(path, report.Cues); err != nil {
		r.partial(ctx, report, services.Wrap(services.ErrPartialPipeline, string(StateCaptioning), "write captions", path, err))
		return nil
	}
	report.CaptionsPath = path
	if !r.cfg.Video.Captions {
		return nil
	}
	overlay := encoding.NewOverlay(r.cfg.Video.FFmpegBinary, r.cfg.Video.CaptionStyle, r.logger)
	if r.runner != nil {
		overlay.WithCommandRunner(r.runner)
	}
	if err := overlay.Burn(ctx, report.VideoPath, path); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.partial(ctx, report, err)
	}
	return nil
}

func (r *Runner) archive(ctx context.Context, report *Report) error {
	archiver := r.archiver
	if archiver == nil {
		archiver = archive.New(nil, r.cfg.Archive.Dir, r.logger)
	}
	out, err := archiver.Archive(ctx, report.VideoPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.partial(ctx, report, err)
		return nil
	}
	report.ArchivePath = out
	return nil
}

// partial records a PartialPipelineWarning. The prior artifact stays in place.
func (r *Runner) partial(ctx context.Context, report *Report, err error) {
	report.Warnings = append(report.Warnings, err.Error())
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "partial pipeline", "partial_pipeline_warning",
		logging.Error(err),
		logging.String("video", report.VideoPath),
		logging.String(logging.FieldImpact, "un-captioned video kept"),
	)
}

func (r *Runner) checkEncoder(context.Context) error {
	statuses := deps.CheckBinaries(deps.FFmpegRequirements(r.cfg.Video.FFmpegBinary, r.cfg.Video.FFprobeBinary))
	missing := deps.MissingRequired(statuses)
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrMissingTool, string(StateExtracting), "check encoder", missing[0].Detail, nil)
}

func (r *Runner) assetsDir() string {
	dir := r.cfg.Paths.AssetsDir
	if r.cfg.Generation.TimestampSubdir {
		dir = filepath.Join(dir, r.now().Format(timestampLayout))
	}
	return dir
}

func (r *Runner) transition(ctx context.Context, report *Report, next State) {
	if !CanTransition(report.State, next) {
		r.logger.Debug("unexpected state transition",
			logging.String("from", string(report.State)),
			logging.String("to", string(next)),
		)
	}
	prev := report.State
	report.State = next
	logging.WithContext(ctx, r.logger).Info("state changed",
		logging.String(logging.FieldEventType, "state_change"),
		logging.String("from", string(prev)),
		logging.String("to", string(next)),
	)
	if r.ledger == nil || next.Terminal() {
		return
	}
	if err := r.ledger.UpdateState(ctx, report.RunID, string(next)); err != nil {
		r.ledgerWarning(ctx, err)
	}
}

func (r *Runner) beginRun(ctx context.Context, report Report) {
	if r.ledger == nil {
		return
	}
	err := r.ledger.BeginRun(ctx, ledger.Run{
		ID:          report.RunID,
		Source:      r.cfg.Scenes.Source,
		StylePreset: r.cfg.Generation.StylePreset,
		State:       string(report.State),
	})
	if err != nil {
		r.ledgerWarning(ctx, err)
	}
}

func (r *Runner) finishRun(ctx context.Context, report Report, runErr error) {
	if r.ledger == nil {
		return
	}
	summary := ledger.RunSummary{
		State:        string(report.State),
		SceneCount:   len(report.Scenes),
		AssetCount:   len(report.Assets),
		FailureCount: len(report.Failures),
		VideoPath:    report.VideoPath,
		CaptionsPath: report.CaptionsPath,
		ArchivePath:  report.ArchivePath,
	}
	if runErr != nil {
		summary.ErrorMessage = runErr.Error()
		if !report.State.Terminal() {
			summary.State = string(StateFailed)
		}
	}
	// The run context may already be canceled; history is still written.
	if err := r.ledger.FinishRun(context.WithoutCancel(ctx), report.RunID, summary); err != nil {
		r.ledgerWarning(ctx, err)
	}
}

func (r *Runner) ledgerWarning(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to update run history", "ledger_write_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "run history incomplete"),
	)
}
