package timeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"reelsmith/internal/fileutil"
)

// FormatTimestamp renders d as HH:MM:SS,mmm.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// WriteSRT writes cues in SubRip format.
func WriteSRT(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for i, cue := range cues {
		if i > 0 {
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
		}
		text := strings.TrimSpace(cue.Text)
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n", cue.Index, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSRTFile writes cues to path atomically.
func WriteSRTFile(path string, cues []Cue) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return WriteSRT(w, cues)
	})
}

// ReadCueCount counts cue blocks in an SRT file; used to sanity check output.
func ReadCueCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, block := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n\n") {
		if strings.Contains(block, "-->") {
			count++
		}
	}
	return count, nil
}
