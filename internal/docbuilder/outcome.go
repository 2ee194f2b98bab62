package docbuilder

// Outcome classifies a BuildPackage call.
type Outcome int

const (
	// OutcomeSkipped means a skip cache matched and nothing was done.
	OutcomeSkipped Outcome = iota
	// OutcomeBuilt means the default target documented successfully.
	OutcomeBuilt
	// OutcomeFailed means the attempt was recorded but the default target failed,
	// or the attempt was aborted with an error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeBuilt:
		return "built"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
