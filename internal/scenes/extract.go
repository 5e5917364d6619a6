package scenes

import (
	"iter"
	"strings"
)

// Extract returns a lazy sequence of scenes found in doc. Each range over the
// sequence re-parses doc from the start.
func Extract(doc string, opts ExtractOptions) iter.Seq[Scene] {
	return func(yield func(Scene) bool) {
		denied := opts.denied()
		emitted := 0
		for scene := range headingScenes(doc) {
			if denied(scene.Title) {
				continue
			}
			emitted++
			if !yield(scene) {
				return
			}
		}
		if emitted > 0 {
			return
		}
		for scene := range paragraphScenes(doc) {
			if denied(scene.Title) {
				continue
			}
			if !yield(scene) {
				return
			}
		}
	}
}

// headingScenes yields one scene per "## Title" line with the text up to the
// next level-2 heading as its body.
func headingScenes(doc string) iter.Seq[Scene] {
	return func(yield func(Scene) bool) {
		lines := strings.Split(normalizeNewlines(doc), "\n")
		title := ""
		open := false
		var body []string
		flush := func() bool {
			if !open {
				return true
			}
			return yield(newScene(title, strings.Join(body, "\n")))
		}
		for _, line := range lines {
			if heading, ok := levelTwoHeading(line); ok {
				if !flush() {
					return
				}
				title, body, open = heading, body[:0], true
				continue
			}
			if open {
				body = append(body, line)
			}
		}
		flush()
	}
}

func levelTwoHeading(line string) (string, bool) {
	if !strings.HasPrefix(line, "##") || strings.HasPrefix(line, "###") {
		return "", false
	}
	rest := line[2:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	title := strings.TrimSpace(rest)
	if title == "" {
		return "", false
	}
	return title, true
}

// paragraphScenes pairs a one-line title paragraph with the paragraph that
// follows it. Multi-line paragraphs that cannot act as titles are skipped.
func paragraphScenes(doc string) iter.Seq[Scene] {
	return func(yield func(Scene) bool) {
		paras := paragraphs(doc)
		for i := 0; i+1 < len(paras); {
			if strings.Contains(paras[i], "\n") {
				i++
				continue
			}
			if !yield(newScene(paras[i], paras[i+1])) {
				return
			}
			i += 2
		}
	}
}

func paragraphs(doc string) []string {
	var out []string
	var current []string
	for _, line := range strings.Split(normalizeNewlines(doc), "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				out = append(out, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, "\n"))
	}
	return out
}

func normalizeNewlines(doc string) string {
	return strings.ReplaceAll(doc, "\r\n", "\n")
}
