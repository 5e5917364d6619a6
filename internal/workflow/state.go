package workflow

// State is a pipeline state.
type State string

const (
	StateStart      State = "start"
	StateExtracting State = "extracting"
	StateGenerating State = "generating"
	StateAssembling State = "assembling"
	StateCaptioning State = "captioning"
	StateDone       State = "done"
	StateAborted    State = "aborted"
	// StateFailed is written to the ledger when a run stops early for a
	// reason other than an encoder abort, such as cancellation.
	StateFailed State = "failed"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted || s == StateFailed
}

var transitions = map[State][]State{
	StateStart:      {StateExtracting},
	StateExtracting: {StateGenerating, StateDone},
	StateGenerating: {StateAssembling, StateDone},
	StateAssembling: {StateCaptioning, StateAborted},
	StateCaptioning: {StateDone},
}

// CanTransition reports whether the pipeline may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
