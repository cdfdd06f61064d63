package session

// Stage is the top-level position of a session.
type Stage int

const (
	Welcome Stage = iota
	Screening
	Intake
	Generating
	Results
)

func (s Stage) String() string {
	switch s {
	case Welcome:
		return "welcome"
	case Screening:
		return "screening"
	case Intake:
		return "intake"
	case Generating:
		return "generating"
	case Results:
		return "results"
	default:
		return "unknown"
	}
}
