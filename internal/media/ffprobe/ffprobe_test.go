package ffprobe

import (
	"math"
	"testing"
	"time"
)

const sampleOutput = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1024, "height": 768, "r_frame_rate": "24/1"}
  ],
  "format": {"filename": "reel.mp4", "duration": "9.041667", "size": "48211", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseAndHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.SizeBytes() != 48211 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if got := result.Duration().Round(time.Millisecond); got != 9042*time.Millisecond {
		t.Fatalf("unexpected duration: %s", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.Duration() != 0 {
		t.Fatalf("expected zero duration, got %s", result.Duration())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestCheckDuration(t *testing.T) {
	result := Result{Format: Format{Duration: "9.5"}}
	check := CheckDuration(result, 9*time.Second, time.Second)
	if !check.OK || check.Drift != 500*time.Millisecond {
		t.Fatalf("expected pass with 500ms drift, got %+v", check)
	}
	check = CheckDuration(result, 15*time.Second, time.Second)
	if check.OK || check.Drift != 5500*time.Millisecond {
		t.Fatalf("expected drift failure, got %+v", check)
	}
	if CheckDuration(Result{}, time.Second, time.Second).OK {
		t.Fatal("missing duration must not pass")
	}
}
