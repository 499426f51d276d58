package solver

import (
	"fmt"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/world"
)

// ReplayError reports the first action of a path that is invalid in its state.
type ReplayError struct {
	Index  int
	Action actions.Action
	State  State
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay: action %d (%s) invalid at %s facing %d", e.Index, e.Action, e.State.Pos, e.State.Dir)
}

// Replay executes path from the start state of w and returns the final state.
func Replay(w *world.World, path []actions.Action) (State, error) {
	s := NewState(w)
	for i, a := range path {
		next, ok := Step(w, s, a)
		if !ok {
			return s, &ReplayError{Index: i, Action: a, State: s}
		}
		s = next
	}
	return s, nil
}
