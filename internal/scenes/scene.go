package scenes

import (
	"iter"
	"strings"

	"reelsmith/internal/textutil"
)

// Scene is one unit of the video: a title, the prompt sent to the image
// service, and the caption shown while the image is on screen.
type Scene struct {
	Title   string `toml:"title" json:"title"`
	Prompt  string `toml:"prompt" json:"prompt"`
	Caption string `toml:"caption" json:"caption"`
}

// ExtractOptions controls which records survive extraction.
type ExtractOptions struct {
	// Denylist holds headings that structure the document but are not
	// prompts. Matching ignores case and surrounding whitespace.
	Denylist []string
}

func (o ExtractOptions) denied() func(title string) bool {
	keys := make(map[string]struct{}, len(o.Denylist))
	for _, title := range o.Denylist {
		if key := textutil.FoldKey(title); key != "" {
			keys[key] = struct{}{}
		}
	}
	return func(title string) bool {
		if strings.HasPrefix(title, "#") {
			return true
		}
		_, ok := keys[textutil.FoldKey(title)]
		return ok
	}
}

// Collect materializes seq, stopping after limit records when limit > 0.
func Collect(seq iter.Seq[Scene], limit int) []Scene {
	var out []Scene
	for scene := range seq {
		out = append(out, scene)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// DuplicateTitles returns titles that appear more than once, in first-seen
// order. Duplicates are legal but share a sanitized filename stem.
func DuplicateTitles(list []Scene) []string {
	counts := make(map[string]int, len(list))
	var dupes []string
	for _, scene := range list {
		key := textutil.SanitizeTitle(scene.Title)
		counts[key]++
		if counts[key] == 2 {
			dupes = append(dupes, scene.Title)
		}
	}
	return dupes
}

func newScene(title, body string) Scene {
	title = strings.TrimSpace(title)
	caption, prompt := splitCaption(body)
	if caption == "" {
		caption = title
	}
	if prompt == "" {
		prompt = title
	} else {
		prompt = title + ": " + prompt
	}
	return Scene{Title: title, Prompt: prompt, Caption: caption}
}

// splitCaption pulls the first "Caption:" or "> " line out of body.
func splitCaption(body string) (caption, rest string) {
	lines := strings.Split(body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if caption == "" {
			if value, ok := captionValue(trimmed); ok {
				caption = value
				continue
			}
		}
		kept = append(kept, line)
	}
	return caption, strings.TrimSpace(strings.Join(kept, "\n"))
}

func captionValue(line string) (string, bool) {
	if len(line) >= len("caption:") && strings.EqualFold(line[:len("caption:")], "caption:") {
		if value := strings.TrimSpace(line[len("caption:"):]); value != "" {
			return value, true
		}
		return "", false
	}
	if strings.HasPrefix(line, ">") {
		if value := strings.TrimSpace(strings.TrimPrefix(line, ">")); value != "" {
			return value, true
		}
	}
	return "", false
}
