package resolver

// State tracks what is known about one request across generations. It
// decides whether a failed resolution is fatal.
type State uint8

const (
	// NeverAttempted means the request has not resolved successfully yet.
	NeverAttempted State = iota
	// Resolving means the first attempt for the request is in flight.
	Resolving
	// SucceededBefore means the request resolved in this or an earlier
	// generation. Later failures are tolerated and logged.
	SucceededBefore
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case NeverAttempted:
		return "never-attempted"
	case Resolving:
		return "resolving"
	case SucceededBefore:
		return "succeeded-before"
	default:
		return "unknown"
	}
}

// Tolerant reports whether a failure in this state may be dropped.
func (s State) Tolerant() bool {
	return s == SucceededBefore
}

// stateTable holds the per-request states. Callers hold Resolver.mu.
type stateTable map[string]State

func (t stateTable) begin(request string) State {
	prev := t[request]
	if prev == NeverAttempted {
		t[request] = Resolving
	}

	return prev
}

func (t stateTable) succeed(request string) {
	t[request] = SucceededBefore
}

func (t stateTable) fail(request string, prev State) {
	if prev == SucceededBefore {
		return
	}
	t[request] = NeverAttempted
}
