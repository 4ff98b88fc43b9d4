// internal/swap/phase.go
package swap

// Phase is the orchestration phase of the operation in flight.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhaseDecompressing
	PhaseExecuting
	PhaseCompressing
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreparing:
		return "preparing"
	case PhaseDecompressing:
		return "decompressing"
	case PhaseExecuting:
		return "executing"
	case PhaseCompressing:
		return "compressing"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether p ends an operation.
func (p Phase) Terminal() bool {
	return p == PhaseConfirmed || p == PhaseFailed
}

// next is the forward transition table. Failed is reachable from every
// non-idle phase.
var next = map[Phase]Phase{
	PhaseIdle:          PhasePreparing,
	PhasePreparing:     PhaseDecompressing,
	PhaseDecompressing: PhaseExecuting,
	PhaseExecuting:     PhaseCompressing,
	PhaseCompressing:   PhaseConfirmed,
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Phase) bool {
	switch {
	case to == PhaseFailed:
		return from != PhaseIdle && !from.Terminal()
	case to == PhaseIdle:
		return from.Terminal()
	default:
		n, ok := next[from]
		return ok && n == to
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(name string) (Phase, bool) {
	for p := PhaseIdle; p <= PhaseFailed; p++ {
		if p.String() == name {
			return p, true
		}
	}
	return PhaseIdle, false
}
