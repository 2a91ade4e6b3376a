package gateway

// Outcome tags how a read call was answered.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeDegraded means the dependency could not be reached and Value is a placeholder.
	OutcomeDegraded
	// OutcomeFailed means the dependency answered with a definitive error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "failed"
	}
}

type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeOK}
}

func degraded[T any](placeholder T, cause error) Result[T] {
	return Result[T]{Value: placeholder, Outcome: OutcomeDegraded, Err: cause}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeFailed, Err: err}
}

func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}
