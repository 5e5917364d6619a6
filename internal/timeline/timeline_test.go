package timeline

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"reelsmith/internal/assets"
	"reelsmith/internal/scenes"
)

func makeAssets(titles ...string) []assets.Asset {
	out := make([]assets.Asset, len(titles))
	for i, title := range titles {
		out[i] = assets.Asset{
			Index: i + 1,
			Scene: scenes.Scene{Title: title, Caption: title + " caption"},
			Path:  filepath.Join("/assets", assets.AssetName(i+1, title)),
		}
	}
	return out
}

func TestBuildCueSlots(t *testing.T) {
	d := 5 * time.Second
	manifest, cues := Build(makeAssets("a", "b", "c", "d"), Options{ImageDuration: d})
	if len(manifest) != 4 || len(cues) != 4 {
		t.Fatalf("expected 4/4, got %d/%d", len(manifest), len(cues))
	}
	for i, cue := range cues {
		if cue.Index != i+1 {
			t.Fatalf("cue %d index = %d", i, cue.Index)
		}
		if cue.Start != time.Duration(i)*d || cue.End != time.Duration(i+1)*d {
			t.Fatalf("cue %d spans %s-%s", i, cue.Start, cue.End)
		}
		if manifest[i].Duration != d {
			t.Fatalf("entry %d duration %s", i, manifest[i].Duration)
		}
	}
	if manifest.Total() != 20*time.Second {
		t.Fatalf("unexpected total %s", manifest.Total())
	}
}

func TestBuildSurvivorsStayAligned(t *testing.T) {
	list := makeAssets("a", "b", "c")
	survivors := []assets.Asset{list[0], list[2]}
	manifest, cues := Build(survivors, Options{ImageDuration: 3 * time.Second})
	if len(manifest) != len(cues) || len(cues) != 2 {
		t.Fatalf("expected equal lengths of 2, got %d/%d", len(manifest), len(cues))
	}
	if cues[1].Start != 3*time.Second || cues[1].Text != "c caption" {
		t.Fatalf("second cue should be the third scene in slot 2, got %+v", cues[1])
	}
	if manifest[1].AssetPath != list[2].Path {
		t.Fatalf("unexpected manifest path %s", manifest[1].AssetPath)
	}
}

func TestBuildCrossfadeExtendsManifestOnly(t *testing.T) {
	manifest, cues := Build(makeAssets("a", "b", "c"), Options{ImageDuration: 4 * time.Second, Crossfade: time.Second})
	if manifest[0].Duration != 5*time.Second || manifest[2].Duration != 4*time.Second {
		t.Fatalf("unexpected crossfade holds %v", manifest)
	}
	if cues[2].Start != 8*time.Second {
		t.Fatalf("cues must ignore crossfade, got %s", cues[2].Start)
	}
}

func TestBuildEmpty(t *testing.T) {
	manifest, cues := Build(nil, Options{ImageDuration: time.Second})
	if len(manifest) != 0 || len(cues) != 0 {
		t.Fatal("expected empty outputs")
	}
}

func TestCaptionFallsBackToTitle(t *testing.T) {
	list := []assets.Asset{{Index: 1, Scene: scenes.Scene{Title: "Bare"}, Path: "/a.png"}}
	_, cues := Build(list, Options{ImageDuration: time.Second})
	if cues[0].Text != "Bare" {
		t.Fatalf("expected title fallback, got %q", cues[0].Text)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{3 * time.Second, "00:00:03,000"},
		{time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond, "01:02:03,045"},
		{-time.Second, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.in); got != tt.want {
			t.Fatalf("FormatTimestamp(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteSRT(t *testing.T) {
	_, cues := Build(makeAssets("a", "b"), Options{ImageDuration: 3 * time.Second})
	var buf bytes.Buffer
	if err := WriteSRT(&buf, cues); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:03,000\na caption\n\n2\n00:00:03,000 --> 00:00:06,000\nb caption\n"
	if buf.String() != want {
		t.Fatalf("unexpected srt:\n%s", buf.String())
	}
}

func TestWriteSRTFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.srt")
	_, cues := Build(makeAssets("a", "b", "c"), Options{ImageDuration: time.Second})
	if err := WriteSRTFile(path, cues); err != nil {
		t.Fatalf("WriteSRTFile: %v", err)
	}
	count, err := ReadCueCount(path)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected 3 cues on disk, got %d", count)
	}
}

func TestSeconds(t *testing.T) {
	if Seconds(2.5) != 2500*time.Millisecond {
		t.Fatalf("unexpected conversion %s", Seconds(2.5))
	}
}
