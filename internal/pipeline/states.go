package pipeline

// State is a file's position in the conversion state machine. Transitions
// are monotonic: a file never revisits an earlier state except through a
// bounded timeout retry, which re-runs the failing stage without moving the
// recorded state backwards.
type State string

const (
	StateDiscovered State = "discovered"
	StateValidated  State = "validated"
	StateProbedPre  State = "probed-pre"
	StateConverting State = "converting"
	StateConverted  State = "converted"
	StateProbedPost State = "probed-post"
	StateCompared   State = "compared"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
