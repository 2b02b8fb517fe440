package plugin

import (
	"fmt"

	cerrors "github.com/conneroisu/concat/internal/errors"
)

// State is the position of a plugin within the current build pass.
type State int

const (
	Idle State = iota
	Resolving
	CheckingStaleness
	Clean
	Rebuilding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case CheckingStaleness:
		return "checking-staleness"
	case Clean:
		return "clean"
	case Rebuilding:
		return "rebuilding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the legal successors of each state. A failed step
// returns to Idle.
var transitions = map[State][]State{
	Idle:              {Resolving},
	Resolving:         {CheckingStaleness, Idle},
	CheckingStaleness: {Clean, Rebuilding, Idle},
	Clean:             {Idle},
	Rebuilding:        {Idle},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

func transitionError(from, to State) error {
	return cerrors.NewInternalError(cerrors.ErrCodeInternalError,
		fmt.Sprintf("illegal transition %s -> %s", from, to), nil)
}
