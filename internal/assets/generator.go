package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
	"reelsmith/internal/scenes"
	"reelsmith/internal/services"
	"reelsmith/internal/services/imagegen"
	"reelsmith/internal/textutil"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 5 * time.Second
)

// ImageService is the subset of the image client the generator depends on.
type ImageService interface {
	Generate(ctx context.Context, prompt string) (imagegen.Artifact, error)
	Download(ctx context.Context, artifact imagegen.Artifact, w io.Writer) (int64, error)
}

// Recorder persists per-scene outcomes.
type Recorder interface {
	RecordAsset(ctx context.Context, outcome ledger.AssetOutcome) error
}

// Options controls generation behaviour.
type Options struct {
	// Dir is where GenerateAll writes NN_title.png files.
	Dir         string
	StyleSuffix string
	MaxAttempts int
	RetryDelay  time.Duration
	// Throttle is the pause between consecutive requests that reach the
	// network. Cache hits do not count.
	Throttle time.Duration
	Force    bool
}

// Asset is a scene whose image exists on disk.
type Asset struct {
	Index  int
	Scene  scenes.Scene
	Path   string
	Cached bool
}

// Failure is a scene that was dropped.
type Failure struct {
	Index int
	Scene scenes.Scene
	Err   error
}

// Generator produces scene images via an ImageService.
type Generator struct {
	client   ImageService
	opts     Options
	recorder Recorder
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// Option customizes the generator.
type Option func(*Generator)

// WithRecorder records each outcome, typically into the run ledger.
func WithRecorder(recorder Recorder) Option {
	return func(g *Generator) {
		g.recorder = recorder
	}
}

// WithLogger sets the generator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithSleeper overrides how retry and throttle delays are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(g *Generator) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// NewGenerator constructs a Generator.
func NewGenerator(client ImageService, opts Options, options ...Option) *Generator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.Throttle < 0 {
		opts.Throttle = 0
	}
	g := &Generator{
		client: client,
		opts:   opts,
		logger: logging.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range options {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "assets")
	return g
}

// AssetName returns the file name for the scene at the 1-based index.
func AssetName(index int, title string) string {
	return fmt.Sprintf("%02d_%s.png", index, textutil.SanitizeTitle(title))
}

// PromptFor appends the style suffix to the scene prompt.
func (g *Generator) PromptFor(scene scenes.Scene) string {
	prompt := strings.TrimSpace(scene.Prompt)
	suffix := strings.TrimSpace(g.opts.StyleSuffix)
	if suffix == "" {
		return prompt
	}
	return prompt + ". " + suffix
}

// Generate makes sure dest holds an image for scene. An existing dest is
// reused unless Force is set.
func (g *Generator) Generate(ctx context.Context, scene scenes.Scene, dest string) error {
	_, _, err := g.generate(ctx, scene, dest)
	return err
}

// generate reports whether dest was a cache hit and how many requests were made.
func (g *Generator) generate(ctx context.Context, scene scenes.Scene, dest string) (bool, int, error) {
	if !g.opts.Force {
		exists, err := fileutil.Exists(dest)
		if err != nil {
			return false, 0, services.Wrap(services.ErrPermanentAsset, "generating", "check cache", dest, err)
		}
		if exists {
			return true, 0, nil
		}
	}

	prompt := g.PromptFor(scene)
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		attempts = attempt
		err := g.fetch(ctx, prompt, dest)
		if err == nil {
			return false, attempts, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, attempts, ctxErr
		}
		if abortsBatch(err) {
			return false, attempts, err
		}
		if !errors.Is(err, services.ErrTransient) {
			return false, attempts, services.Wrap(services.ErrPermanentAsset, "generating", "generate asset", fmt.Sprintf("%q cannot be produced", scene.Title), err)
		}
		lastErr = err
		if attempt == g.opts.MaxAttempts {
			break
		}
		g.logger.Info("image request failed; retrying",
			logging.String(logging.FieldEventType, "asset_retry"),
			logging.String("scene", scene.Title),
			logging.Int("attempt", attempt),
			logging.Duration("delay", g.opts.RetryDelay),
			logging.Error(err),
		)
		if err := g.sleep(ctx, g.opts.RetryDelay); err != nil {
			return false, attempts, err
		}
	}
	return false, attempts, services.Wrap(
		services.ErrPermanentAsset,
		"generating",
		"generate asset",
		fmt.Sprintf("%q failed after %d attempts", scene.Title, attempts),
		lastErr,
	)
}

func (g *Generator) fetch(ctx context.Context, prompt, dest string) error {
	artifact, err := g.client.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		_, err := g.client.Download(ctx, artifact, w)
		return err
	})
}

// GenerateAll generates every scene in order into Options.Dir. Dropped scenes
// are returned as failures. The error is non-nil only when the batch stopped
// early because of cancellation or a fatal error.
func (g *Generator) GenerateAll(ctx context.Context, list []scenes.Scene) ([]Asset, []Failure, error) {
	var (
		assets   []Asset
		failures []Failure
		hitNet   bool
	)
	for i, scene := range list {
		if err := ctx.Err(); err != nil {
			return assets, failures, err
		}
		index := i + 1
		dest := filepath.Join(g.opts.Dir, AssetName(index, scene.Title))
		sceneCtx := services.WithSceneIndex(ctx, index)
		logger := logging.WithContext(sceneCtx, g.logger)

		if hitNet && g.opts.Throttle > 0 && (g.opts.Force || !cached(dest)) {
			if err := g.sleep(ctx, g.opts.Throttle); err != nil {
				return assets, failures, err
			}
		}

		isCached, attempts, err := g.generate(sceneCtx, scene, dest)
		if attempts > 0 {
			hitNet = true
		}
		switch {
		case err == nil:
			assets = append(assets, Asset{Index: index, Scene: scene, Path: dest, Cached: isCached})
			outcome := ledger.OutcomeGenerated
			if isCached {
				outcome = ledger.OutcomeCached
				logger.Info("reusing existing image",
					logging.String(logging.FieldEventType, "asset_cached"),
					logging.String("path", dest),
				)
			} else {
				logger.Info("image generated",
					logging.String(logging.FieldEventType, "asset_generated"),
					logging.String("path", dest),
					logging.Int("attempts", attempts),
				)
			}
			g.record(sceneCtx, ledger.AssetOutcome{SceneIndex: index, Title: scene.Title, Path: dest, Outcome: outcome, Attempts: attempts})
		case ctx.Err() != nil:
			return assets, failures, ctx.Err()
		case abortsBatch(err):
			return assets, failures, err
		default:
			failures = append(failures, Failure{Index: index, Scene: scene, Err: err})
			logging.WarnWithContext(logger, "scene dropped", "asset_failed",
				logging.String("scene", scene.Title),
				logging.Int("attempts", attempts),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check image_api settings and provider status"),
				logging.String(logging.FieldImpact, "scene omitted from video and captions"),
			)
			g.record(sceneCtx, ledger.AssetOutcome{SceneIndex: index, Title: scene.Title, Outcome: ledger.OutcomeFailed, Attempts: attempts, ErrorMessage: err.Error()})
		}
	}
	return assets, failures, nil
}

func (g *Generator) record(ctx context.Context, outcome ledger.AssetOutcome) {
	if g.recorder == nil {
		return
	}
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		return
	}
	outcome.RunID = runID
	if err := g.recorder.RecordAsset(ctx, outcome); err != nil {
		logging.WarnWithContext(g.logger, "failed to record asset outcome", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}

// abortsBatch reports whether err stops GenerateAll. Anything else is a
// per-scene failure and drops only that scene.
func abortsBatch(err error) bool {
	return errors.Is(err, services.ErrConfiguration) || errors.Is(err, services.ErrMissingTool)
}

func cached(path string) bool {
	ok, err := fileutil.Exists(path)
	return err == nil && ok
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
