package timeline

import (
	"time"

	"reelsmith/internal/assets"
)

// Options controls slot timing.
type Options struct {
	// ImageDuration is how long each image stays on screen.
	ImageDuration time.Duration
	// Crossfade extends every non-final slot in the manifest. Cues ignore it.
	Crossfade time.Duration
}

// Entry is one image held for Duration.
type Entry struct {
	AssetPath string
	Duration  time.Duration
}

// Manifest is the ordered list of entries handed to the assembler.
type Manifest []Entry

// Total returns the summed duration of all entries.
func (m Manifest) Total() time.Duration {
	var total time.Duration
	for _, entry := range m {
		total += entry.Duration
	}
	return total
}

// Paths returns the asset paths in manifest order.
func (m Manifest) Paths() []string {
	out := make([]string, len(m))
	for i, entry := range m {
		out[i] = entry.AssetPath
	}
	return out
}

// Cue is one caption. Index is 1-based.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Build returns the manifest and caption cues for list. Slot i (0-based) of
// the caption track spans [i*d, (i+1)*d).
func Build(list []assets.Asset, opts Options) (Manifest, []Cue) {
	d := opts.ImageDuration
	manifest := make(Manifest, 0, len(list))
	cues := make([]Cue, 0, len(list))
	for i, asset := range list {
		hold := d
		if opts.Crossfade > 0 && i < len(list)-1 {
			hold += opts.Crossfade
		}
		manifest = append(manifest, Entry{AssetPath: asset.Path, Duration: hold})

		text := asset.Scene.Caption
		if text == "" {
			text = asset.Scene.Title
		}
		cues = append(cues, Cue{
			Index: i + 1,
			Start: time.Duration(i) * d,
			End:   time.Duration(i+1) * d,
			Text:  text,
		})
	}
	return manifest, cues
}

// Seconds converts fractional seconds from configuration into a Duration.
func Seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}
