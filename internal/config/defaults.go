package config

const (
	defaultAssetsDir         = "generated_images"
	defaultOutputDir         = "video_output"
	defaultLogDir            = "~/.local/share/reelsmith/logs"
	defaultStateDir          = "~/.local/share/reelsmith/state"
	defaultArchiveDir        = "video_output/archive"
	defaultImageBaseURL      = "https://api.openai.com/v1/images/generations"
	defaultImageModel        = "dall-e-3"
	defaultImageQuality      = "standard"
	defaultImageStyle        = "vivid"
	defaultImageWidth        = 1024
	defaultImageHeight       = 768
	defaultRequestTimeout    = 60
	defaultDownloadTimeout   = 30
	defaultStylePreset       = "monty_python"
	defaultMaxAttempts       = 3
	defaultRetryDelaySeconds = 5
	defaultThrottleSeconds   = 2
	defaultFPS               = 24
	defaultImageDuration     = 5
	defaultVideoName         = "reel.mp4"
	defaultCaptionsName      = "captions.srt"
	defaultCaptionStyle      = "FontSize=24,Alignment=2,BorderStyle=4,OutlineColour=&H80000000,BackColour=&H80000000"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultMinFreeSpaceMB    = 512
	defaultScenesSource      = "images_prompts.md"
	defaultAPIBind           = "127.0.0.1:7591"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// StylePresets maps preset names to the prompt suffix appended to every scene.
var StylePresets = map[string]string{
	"realistic":    "Photorealistic, highly detailed, cinematic lighting",
	"cartoon":      "Cartoon style, colorful, stylized, 2D animation",
	"monty_python": "In the style of Monty Python animations, Terry Gilliam cartoon style, paper cutout animation, surreal, satirical",
	"sketch":       "Pencil sketch, hand-drawn, black and white, artistic",
}

// DefaultDenylist holds headings that organize a prompt document but are not prompts.
var DefaultDenylist = []string{
	"images.md",
	"#images.md",
	"Image Creation Plan",
	"Animated Video with ffmpeg",
	"Image Prompts",
	"Monty Python Trump Roast - Image Prompts",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetsDir: defaultAssetsDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		ImageAPI: ImageAPI{
			BaseURL:         defaultImageBaseURL,
			Model:           defaultImageModel,
			Quality:         defaultImageQuality,
			Style:           defaultImageStyle,
			Width:           defaultImageWidth,
			Height:          defaultImageHeight,
			RequestTimeout:  defaultRequestTimeout,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Generation: Generation{
			StylePreset:       defaultStylePreset,
			MaxAttempts:       defaultMaxAttempts,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			ThrottleSeconds:   defaultThrottleSeconds,
		},
		Video: Video{
			FPS:            defaultFPS,
			ImageDuration:  defaultImageDuration,
			VideoName:      defaultVideoName,
			CaptionsName:   defaultCaptionsName,
			CaptionStyle:   defaultCaptionStyle,
			Captions:       true,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			MinFreeSpaceMB: defaultMinFreeSpaceMB,
		},
		Scenes: Scenes{
			Source:   defaultScenesSource,
			Denylist: append([]string(nil), DefaultDenylist...),
		},
		Archive: Archive{
			Dir: defaultArchiveDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
