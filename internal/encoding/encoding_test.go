package encoding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

type recordedCall struct {
	name string
	args []string
}

// fakeFFmpeg writes a placeholder to the output path (the last argument).
type fakeFFmpeg struct {
	calls    []recordedCall
	concat   string
	fail     error
	scratch  string
	writeOut bool
}

func (f *fakeFFmpeg) run(_ context.Context, name string, args ...string) error {
	f.calls = append(f.calls, recordedCall{name: name, args: append([]string(nil), args...)})
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) && strings.HasSuffix(args[i+1], concatListName) {
			data, err := os.ReadFile(args[i+1])
			if err != nil {
				return err
			}
			f.concat = string(data)
			f.scratch = filepath.Dir(args[i+1])
		}
	}
	out := args[len(args)-1]
	if f.writeOut || f.fail != nil {
		if err := os.WriteFile(out, []byte("partial-or-complete"), 0o644); err != nil {
			return err
		}
	}
	return f.fail
}

func writeAssets(t *testing.T, dir string, n int) timeline.Manifest {
	t.Helper()
	manifest := make(timeline.Manifest, 0, n)
	for i := 1; i <= n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%02d_scene.png", i))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("png-%d", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		manifest = append(manifest, timeline.Entry{AssetPath: path, Duration: 3 * time.Second})
	}
	return manifest
}

func TestAssemblerSuccess(t *testing.T) {
	assetsDir := t.TempDir()
	outDir := t.TempDir()
	manifest := writeAssets(t, assetsDir, 3)
	output := filepath.Join(outDir, "reel.mp4")

	fake := &fakeFFmpeg{writeOut: true}
	a := NewAssembler("ffmpeg", 24, logging.NewNop())
	a.WithCommandRunner(fake.run)

	ctx := services.WithRunID(context.Background(), "run-abc")
	if err := a.Assemble(ctx, manifest, output); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(fake.calls) != 1 || fake.calls[0].name != "ffmpeg" {
		t.Fatalf("unexpected calls %+v", fake.calls)
	}
	wantConcat := "file 'img0000.png'\nduration 3.000000\n" +
		"file 'img0001.png'\nduration 3.000000\n" +
		"file 'img0002.png'\nduration 3.000000\n" +
		"file 'img0002.png'\n"
	if fake.concat != wantConcat {
		t.Fatalf("unexpected concat list:\n%s", fake.concat)
	}
	if filepath.Base(fake.scratch) != ".scratch-run-abc" {
		t.Fatalf("unexpected scratch dir %s", fake.scratch)
	}
	if _, err := os.Stat(fake.scratch); !os.IsNotExist(err) {
		t.Fatalf("scratch dir should be removed, stat err %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output: %v", err)
	}
	if got := fake.calls[0].args[len(fake.calls[0].args)-1]; got != partialPath(output) {
		t.Fatalf("expected ffmpeg to write %s, got %s", partialPath(output), got)
	}
	if _, err := os.Stat(partialPath(output)); !os.IsNotExist(err) {
		t.Fatalf("partial file should be renamed away, stat err %v", err)
	}
}

func TestAssemblerArgs(t *testing.T) {
	a := NewAssembler("ffmpeg", 24, nil)
	got := strings.Join(a.Args("/s/files.txt", "/o/reel.mp4"), " ")
	want := "-y -f concat -safe 0 -i /s/files.txt -r 24 -c:v libx264 -pix_fmt yuv420p -profile:v main -preset medium -crf 23 -movflags +faststart -g 48 /o/reel.mp4"
	if got != want {
		t.Fatalf("unexpected args:\n got %s\nwant %s", got, want)
	}
}

func TestConcatListRoundsToFrames(t *testing.T) {
	manifest := timeline.Manifest{
		{AssetPath: "a", Duration: 1010 * time.Millisecond},
		{AssetPath: "b", Duration: time.Millisecond},
	}
	got := ConcatList(manifest, []string{"img0000.png", "img0001.png"}, 10)
	want := "file 'img0000.png'\nduration 1.000000\nfile 'img0001.png'\nduration 0.100000\nfile 'img0001.png'\n"
	if got != want {
		t.Fatalf("unexpected list:\n%s", got)
	}
}

func TestAssemblerEncoderFailureCleansUp(t *testing.T) {
	assetsDir := t.TempDir()
	outDir := t.TempDir()
	manifest := writeAssets(t, assetsDir, 2)
	output := filepath.Join(outDir, "reel.mp4")

	stale := filepath.Join(outDir, ".scratch-run-stale")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stale, "stale.png"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeFFmpeg{fail: errors.New("exit status 1: Invalid data")}
	a := NewAssembler("ffmpeg", 24, nil)
	a.WithCommandRunner(fake.run)

	ctx := services.WithRunID(context.Background(), "run-stale")
	err := a.Assemble(ctx, manifest, output)
	if !errors.Is(err, services.ErrEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("encoding failure must be fatal")
	}
	if fake.scratch != stale {
		t.Fatalf("expected scratch dir %s, got %s", stale, fake.scratch)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("no output expected, stat err %v", statErr)
	}
	if _, statErr := os.Stat(partialPath(output)); !os.IsNotExist(statErr) {
		t.Fatalf("partial output must be removed, stat err %v", statErr)
	}
	if _, statErr := os.Stat(stale); !os.IsNotExist(statErr) {
		t.Fatalf("stale scratch dir left behind, stat err %v", statErr)
	}
}

func TestAssemblerFailureKeepsPreviousOutput(t *testing.T) {
	cases := []struct {
		name   string
		runner CommandRunner
		want   error
	}{
		{
			name: "missing tool",
			runner: func(ctx context.Context, name string, args ...string) error {
				return &exec.Error{Name: name, Err: exec.ErrNotFound}
			},
			want: services.ErrMissingTool,
		},
		{
			name:   "encoder failure",
			runner: (&fakeFFmpeg{fail: errors.New("exit status 1: Conversion failed")}).run,
			want:   services.ErrEncoding,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outDir := t.TempDir()
			output := filepath.Join(outDir, "reel.mp4")
			if err := os.WriteFile(output, []byte("previous reel"), 0o644); err != nil {
				t.Fatal(err)
			}
			a := NewAssembler("ffmpeg", 24, nil)
			a.WithCommandRunner(tc.runner)

			err := a.Assemble(context.Background(), writeAssets(t, t.TempDir(), 1), output)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			data, readErr := os.ReadFile(output)
			if readErr != nil || string(data) != "previous reel" {
				t.Fatalf("previous output must survive, got %q (%v)", data, readErr)
			}
			if _, statErr := os.Stat(partialPath(output)); !os.IsNotExist(statErr) {
				t.Fatalf("partial output must be removed, stat err %v", statErr)
			}
		})
	}
}

func TestAssemblerMissingTool(t *testing.T) {
	manifest := writeAssets(t, t.TempDir(), 1)
	outDir := t.TempDir()
	a := NewAssembler("definitely-not-ffmpeg", 24, nil)
	a.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return &exec.Error{Name: name, Err: exec.ErrNotFound}
	})
	err := a.Assemble(context.Background(), manifest, filepath.Join(outDir, "reel.mp4"))
	if !errors.Is(err, services.ErrMissingTool) {
		t.Fatalf("expected missing tool, got %v", err)
	}
	entries, _ := filepath.Glob(filepath.Join(outDir, ".scratch-*"))
	if len(entries) != 0 {
		t.Fatalf("scratch dir left behind: %v", entries)
	}
}

func TestAssemblerMissingToolRealExec(t *testing.T) {
	manifest := writeAssets(t, t.TempDir(), 1)
	a := NewAssembler("reelsmith-no-such-binary", 24, nil)
	err := a.Assemble(context.Background(), manifest, filepath.Join(t.TempDir(), "reel.mp4"))
	if !errors.Is(err, services.ErrMissingTool) {
		t.Fatalf("expected missing tool from real exec, got %v", err)
	}
}

func TestAssemblerEmptyManifest(t *testing.T) {
	a := NewAssembler("ffmpeg", 24, nil)
	if err := a.Assemble(context.Background(), nil, filepath.Join(t.TempDir(), "x.mp4")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssemblerMissingAsset(t *testing.T) {
	outDir := t.TempDir()
	manifest := timeline.Manifest{{AssetPath: filepath.Join(outDir, "gone.png"), Duration: time.Second}}
	fake := &fakeFFmpeg{writeOut: true}
	a := NewAssembler("ffmpeg", 24, nil)
	a.WithCommandRunner(fake.run)
	if err := a.Assemble(context.Background(), manifest, filepath.Join(outDir, "reel.mp4")); !errors.Is(err, services.ErrEncoding) {
		t.Fatalf("expected encoding error for missing asset, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatal("ffmpeg must not run when staging fails")
	}
}

func TestOverlayBurnReplacesVideo(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "reel.mp4")
	srt := filepath.Join(dir, "captions.srt")
	if err := os.WriteFile(video, []byte("plain"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(srt, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := &fakeFFmpeg{writeOut: true}
	o := NewOverlay("ffmpeg", "FontSize=24", nil)
	o.WithCommandRunner(fake.run)

	if err := o.Burn(context.Background(), video, srt); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	data, _ := os.ReadFile(video)
	if string(data) != "partial-or-complete" {
		t.Fatalf("expected captioned video in place, got %q", data)
	}
	if _, err := os.Stat(SidePath(video)); !os.IsNotExist(err) {
		t.Fatalf("side file should be renamed away, stat err %v", err)
	}
	args := strings.Join(fake.calls[0].args, " ")
	if !strings.Contains(args, "-vf subtitles=") || !strings.Contains(args, ":force_style='FontSize=24'") {
		t.Fatalf("unexpected overlay args %s", args)
	}
	if !strings.Contains(args, "-c:a copy") {
		t.Fatalf("expected audio copy in %s", args)
	}
}

func TestOverlayFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "reel.mp4")
	srt := filepath.Join(dir, "captions.srt")
	if err := os.WriteFile(video, []byte("plain"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(srt, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := &fakeFFmpeg{fail: errors.New("exit status 1: no libass")}
	o := NewOverlay("ffmpeg", "", nil)
	o.WithCommandRunner(fake.run)

	err := o.Burn(context.Background(), video, srt)
	if !errors.Is(err, services.ErrPartialPipeline) {
		t.Fatalf("expected partial pipeline error, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("overlay failure must not be fatal")
	}
	data, _ := os.ReadFile(video)
	if string(data) != "plain" {
		t.Fatalf("original video must be kept, got %q", data)
	}
	if _, err := os.Stat(SidePath(video)); !os.IsNotExist(err) {
		t.Fatalf("side file should be removed, stat err %v", err)
	}
}

func TestOverlayMissingInputs(t *testing.T) {
	o := NewOverlay("ffmpeg", "", nil)
	err := o.Burn(context.Background(), filepath.Join(t.TempDir(), "none.mp4"), "none.srt")
	if !errors.Is(err, services.ErrPartialPipeline) {
		t.Fatalf("expected partial pipeline error, got %v", err)
	}
}

func TestSidePath(t *testing.T) {
	if got := SidePath("/out/reel.mp4"); got != "/out/.reel.captioned.mp4" {
		t.Fatalf("unexpected side path %s", got)
	}
}

func TestPartialPath(t *testing.T) {
	if got := partialPath("/out/reel.mp4"); got != "/out/.reel.partial.mp4" {
		t.Fatalf("unexpected partial path %s", got)
	}
}

func TestEscapeFilterValue(t *testing.T) {
	if got := escapeFilterValue(`/tmp/a:b's.srt`); got != `/tmp/a\:b\'s.srt` {
		t.Fatalf("unexpected escape %s", got)
	}
}
