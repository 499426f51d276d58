package pipeline

import (
	"fmt"
	"slices"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/report"
	"blockmaze.ai/internal/sim/solver"
	"blockmaze.ai/internal/sim/synth"
	"blockmaze.ai/internal/sim/world"
)

// VerifyError names the check a recorded solution failed.
type VerifyError struct {
	Check string
	Err   error
}

func (e *VerifyError) Error() string {
	if e.Err == nil {
		return "verify: " + e.Check
	}
	return fmt.Sprintf("verify: %s: %v", e.Check, e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Verify checks a found solution against w: the path replays to a goal
// state, the program expands back to the path, and blockCount matches the
// program.
func Verify(w *world.World, path []actions.Action, prog synth.Program, blockCount int) error {
	s, err := solver.Replay(w, path)
	if err != nil {
		return &VerifyError{Check: "replay", Err: err}
	}
	if !solver.GoalReached(w, s) {
		return &VerifyError{Check: "goal", Err: fmt.Errorf("path ends at %s without meeting the goals", s.Pos)}
	}
	flat, err := prog.Flatten()
	if err != nil {
		return &VerifyError{Check: "flatten", Err: err}
	}
	if !slices.Equal(flat, path) {
		return &VerifyError{Check: "program", Err: fmt.Errorf("expands to %d actions, path has %d", len(flat), len(path))}
	}
	if got := report.CountBlocks(prog); got != blockCount {
		return &VerifyError{Check: "blocks", Err: fmt.Errorf("program has %d blocks, recorded %d", got, blockCount)}
	}
	return nil
}

// VerifySolution runs Verify on a pipeline result. Unsolved results pass.
func VerifySolution(w *world.World, sol Solution) error {
	if !sol.Found {
		return nil
	}
	return Verify(w, sol.RawActions, sol.Program, sol.BlockCount)
}
