package workflow_test

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/ledger"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/runlock"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/timeline"
	"reelsmith/internal/workflow"
)

const threeScenes = `# images.md

## Spam Sketch
A cafe where every dish contains spam and a choir of vikings.

## Dead Parrot
A shopkeeper insists the parrot is only resting.

## Ministry of Silly Walks
A civil servant demonstrates an extraordinary walk.
`

// fakeFFmpeg writes the last argument as the output file so the pipeline sees
// real artifacts on disk.
type fakeFFmpeg struct {
	mu         sync.Mutex
	calls      [][]string
	failConcat error
	failBurn   error
}

func (f *fakeFFmpeg) run(_ context.Context, _ string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.mu.Unlock()

	concat := slices.Contains(args, "concat")
	if concat && f.failConcat != nil {
		return f.failConcat
	}
	if !concat && f.failBurn != nil {
		return f.failBurn
	}
	return os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
}

func (f *fakeFFmpeg) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func probeSeconds(value string) workflow.Prober {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Format: ffprobe.Format{Duration: value}}, nil
	}
}

func noToolCheck(context.Context) error { return nil }

func newRunner(cfg *config.Config, ff *fakeFFmpeg, opts ...workflow.Option) *workflow.Runner {
	base := []workflow.Option{
		workflow.WithCommandRunner(ff.run),
		workflow.WithToolCheck(noToolCheck),
		workflow.WithProber(probeSeconds("9.0")),
	}
	return workflow.NewRunner(cfg, append(base, opts...)...)
}

func TestRunEndToEnd(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
		testsupport.WithImageDuration(3),
	)
	store := testsupport.MustOpenLedger(t, cfg)
	ff := &fakeFFmpeg{}

	report, err := newRunner(cfg, ff, workflow.WithLedger(store)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != workflow.StateDone {
		t.Fatalf("expected done, got %s", report.State)
	}
	if server.Requests() != 3 {
		t.Fatalf("expected 3 image requests, got %d", server.Requests())
	}
	for _, prompt := range server.Prompts() {
		if !strings.Contains(prompt, config.StylePresets[cfg.Generation.StylePreset]) {
			t.Fatalf("prompt missing style suffix: %q", prompt)
		}
	}

	wantCues := [][2]time.Duration{{0, 3 * time.Second}, {3 * time.Second, 6 * time.Second}, {6 * time.Second, 9 * time.Second}}
	if len(report.Cues) != len(wantCues) {
		t.Fatalf("expected %d cues, got %d", len(wantCues), len(report.Cues))
	}
	for i, want := range wantCues {
		if report.Cues[i].Start != want[0] || report.Cues[i].End != want[1] {
			t.Fatalf("cue %d spans %s-%s, want %s-%s", i, report.Cues[i].Start, report.Cues[i].End, want[0], want[1])
		}
	}

	paths := report.Manifest.Paths()
	if len(paths) != 3 {
		t.Fatalf("expected 3 manifest entries, got %d", len(paths))
	}
	for i, asset := range report.Assets {
		if paths[i] != asset.Path {
			t.Fatalf("manifest entry %d = %s, want %s", i, paths[i], asset.Path)
		}
	}
	if paths[0] == paths[1] || paths[1] == paths[2] || paths[0] == paths[2] {
		t.Fatalf("manifest paths not distinct: %v", paths)
	}
	if !strings.HasSuffix(paths[0], "01_spam_sketch.png") || !strings.HasSuffix(paths[2], "03_ministry_of_silly_walks.png") {
		t.Fatalf("unexpected asset names: %v", paths)
	}

	if ff.callCount() != 2 {
		t.Fatalf("expected assemble and burn calls, got %d", ff.callCount())
	}
	count, err := timeline.ReadCueCount(report.CaptionsPath)
	if err != nil || count != 3 {
		t.Fatalf("captions file: count=%d err=%v", count, err)
	}
	if _, err := os.Stat(report.VideoPath); err != nil {
		t.Fatalf("video missing: %v", err)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.State != string(workflow.StateDone) || run.AssetCount != 3 || run.SceneCount != 3 || !run.Finished() {
		t.Fatalf("unexpected ledger run: %+v", run)
	}
	outcomes, err := store.ListAssets(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(outcomes) != 3 || outcomes[0].Outcome != ledger.OutcomeGenerated {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}

func TestRunReusesExistingAssets(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
	)
	testsupport.WriteAssets(t, cfg.Paths.AssetsDir, "Spam Sketch", "Dead Parrot", "Ministry of Silly Walks")

	report, err := newRunner(cfg, &fakeFFmpeg{}, workflow.WithProber(probeSeconds("15"))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if server.Requests() != 0 {
		t.Fatalf("expected zero image requests, got %d", server.Requests())
	}
	for _, asset := range report.Assets {
		if !asset.Cached {
			t.Fatalf("asset %d not reported as cached", asset.Index)
		}
	}
}

func TestRunDropsFailedScene(t *testing.T) {
	server := testsupport.NewImageServer(t)
	server.FailPrompts("Dead Parrot")
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
		testsupport.WithImageDuration(3),
	)
	cfg.Generation.MaxAttempts = 2

	report, err := newRunner(cfg, &fakeFFmpeg{}, workflow.WithProber(probeSeconds("6"))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Assets) != 2 || len(report.Failures) != 1 {
		t.Fatalf("expected 2 assets and 1 failure, got %d/%d", len(report.Assets), len(report.Failures))
	}
	if len(report.Manifest) != len(report.Cues) || len(report.Cues) != 2 {
		t.Fatalf("manifest %d and cues %d must both be 2", len(report.Manifest), len(report.Cues))
	}
	if report.Cues[1].Start != 3*time.Second || report.Cues[1].Text != "Ministry of Silly Walks" {
		t.Fatalf("second cue should follow the surviving scene: %+v", report.Cues[1])
	}
	if !errors.Is(report.Failures[0].Err, services.ErrPermanentAsset) {
		t.Fatalf("expected permanent asset error, got %v", report.Failures[0].Err)
	}
	if server.Requests() != 4 {
		t.Fatalf("expected 4 requests (one retry), got %d", server.Requests())
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", report.Warnings)
	}
}

func TestRunAbortsOnEncoderFailure(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
	)
	store := testsupport.MustOpenLedger(t, cfg)
	ff := &fakeFFmpeg{failConcat: errors.New("exit status 1")}

	report, err := newRunner(cfg, ff, workflow.WithLedger(store)).Run(context.Background())
	if !errors.Is(err, services.ErrEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	if report.State != workflow.StateAborted {
		t.Fatalf("expected aborted, got %s", report.State)
	}
	if ff.callCount() != 1 {
		t.Fatalf("captioning must not run after an abort, got %d calls", ff.callCount())
	}
	entries, _ := os.ReadDir(cfg.Paths.AssetsDir)
	if len(entries) < 3 {
		t.Fatalf("generated assets must be kept, found %d entries", len(entries))
	}
	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.State != string(workflow.StateAborted) || run.ErrorMessage == "" {
		t.Fatalf("unexpected ledger run: %+v", run)
	}
}

func TestRunCaptionFailureKeepsVideo(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
		testsupport.WithImageDuration(3),
	)
	ff := &fakeFFmpeg{failBurn: errors.New("exit status 1")}

	report, err := newRunner(cfg, ff).Run(context.Background())
	if err != nil {
		t.Fatalf("caption failure must not fail the run: %v", err)
	}
	if report.State != workflow.StateDone {
		t.Fatalf("expected done, got %s", report.State)
	}
	data, err := os.ReadFile(report.VideoPath)
	if err != nil || string(data) != "video" {
		t.Fatalf("un-captioned video should be kept: %q %v", data, err)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], services.ErrPartialPipeline.Error()) {
		t.Fatalf("expected a partial pipeline warning, got %v", report.Warnings)
	}
}

func TestRunWarnsOnDurationDrift(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
		testsupport.WithImageDuration(3),
	)
	cfg.Video.Captions = false

	report, err := newRunner(cfg, &fakeFFmpeg{}, workflow.WithProber(probeSeconds("12.5"))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "duration") {
		t.Fatalf("expected a duration warning, got %v", report.Warnings)
	}
}

func TestRunNothingToGenerate(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument("## images.md\n\n## Image Creation Plan\n"),
		testsupport.WithImageEndpoint(server.URL),
	)
	ff := &fakeFFmpeg{}

	report, err := newRunner(cfg, ff).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != workflow.StateDone || len(report.Scenes) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if ff.callCount() != 0 || server.Requests() != 0 {
		t.Fatalf("nothing should run: ffmpeg=%d http=%d", ff.callCount(), server.Requests())
	}
}

func TestRunMissingEncoderStopsBeforeGenerating(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
	)
	cfg.Video.FFmpegBinary = "/nonexistent/reelsmith-ffmpeg"

	_, err := workflow.NewRunner(cfg).Run(context.Background())
	if !errors.Is(err, services.ErrMissingTool) {
		t.Fatalf("expected missing tool, got %v", err)
	}
	if server.Requests() != 0 {
		t.Fatalf("no images should be requested, got %d", server.Requests())
	}
}

func TestRunFailsWhenAssetDirLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSceneDocument(threeScenes))
	lock, err := runlock.Acquire(cfg.Paths.AssetsDir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	_, err = newRunner(cfg, &fakeFFmpeg{}).Run(context.Background())
	if !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunTimestampSubdir(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
	)
	cfg.Generation.TimestampSubdir = true
	cfg.Scenes.Limit = 1
	clock := func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	report, err := newRunner(cfg, &fakeFFmpeg{}, workflow.WithClock(clock), workflow.WithProber(probeSeconds("5"))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(report.AssetsDir, "20260301_093000") {
		t.Fatalf("unexpected assets dir %s", report.AssetsDir)
	}
	if len(report.Scenes) != 1 || server.Requests() != 1 {
		t.Fatalf("limit not applied: scenes=%d requests=%d", len(report.Scenes), server.Requests())
	}
}

func TestRunCanceled(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newRunner(cfg, &fakeFFmpeg{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if report.State == workflow.StateAborted {
		t.Fatal("cancellation is not an abort")
	}
}

func TestCanTransition(t *testing.T) {
	if !workflow.CanTransition(workflow.StateAssembling, workflow.StateAborted) {
		t.Fatal("assembling may abort")
	}
	for _, from := range []workflow.State{workflow.StateStart, workflow.StateExtracting, workflow.StateGenerating, workflow.StateCaptioning} {
		if workflow.CanTransition(from, workflow.StateAborted) {
			t.Fatalf("%s must not abort", from)
		}
	}
	if workflow.CanTransition(workflow.StateDone, workflow.StateStart) {
		t.Fatal("done is terminal")
	}
}

func TestRunEncoderCheckFindsBinariesOnPath(t *testing.T) {
	server := testsupport.NewImageServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSceneDocument(threeScenes),
		testsupport.WithImageEndpoint(server.URL),
		testsupport.WithImageDuration(3),
		testsupport.WithStubbedBinaries(),
	)
	ff := &fakeFFmpeg{}
	runner := workflow.NewRunner(cfg,
		workflow.WithCommandRunner(ff.run),
		workflow.WithProber(probeSeconds("9")),
	)

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != workflow.StateDone || ff.callCount() != 2 {
		t.Fatalf("unexpected result: state=%s calls=%d", report.State, ff.callCount())
	}
}
