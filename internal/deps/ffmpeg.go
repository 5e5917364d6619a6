package deps

import "strings"

// FFmpegRequirements lists the encoder binaries. ffprobe only backs the
// post-assembly duration check, so it is optional.
func FFmpegRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     fallback(ffmpeg, "ffmpeg"),
			Description: "Required for video assembly and captions",
		},
		{
			Name:        "FFprobe",
			Command:     fallback(ffprobe, "ffprobe"),
			Description: "Verifies assembled video duration",
			Optional:    true,
		},
	}
}

func fallback(value, def string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return def
}
