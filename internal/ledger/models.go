package ledger

import "time"

// Outcome describes what happened to a single scene's asset.
type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeCached    Outcome = "cached"
	OutcomeFailed    Outcome = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	StylePreset  string    `json:"style_preset"`
	State        string    `json:"state"`
	SceneCount   int       `json:"scene_count"`
	AssetCount   int       `json:"asset_count"`
	FailureCount int       `json:"failure_count"`
	VideoPath    string    `json:"video_path,omitempty"`
	CaptionsPath string    `json:"captions_path,omitempty"`
	ArchivePath  string    `json:"archive_path,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
}

// Finished reports whether the run reached a terminal state.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration returns how long the run took, or zero while it is in flight.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// AssetOutcome records the result of generating one scene's image.
type AssetOutcome struct {
	RunID        string    `json:"run_id"`
	SceneIndex   int       `json:"scene_index"`
	Title        string    `json:"title"`
	Path         string    `json:"path,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	Attempts     int       `json:"attempts"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunSummary carries the terminal fields written by FinishRun.
type RunSummary struct {
	State        string
	SceneCount   int
	AssetCount   int
	FailureCount int
	VideoPath    string
	CaptionsPath string
	ArchivePath  string
	ErrorMessage string
}
