package solver

import (
	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/world"
)

// Step applies a to s. ok is false when the action is not valid in s.
func Step(w *world.World, s State, a actions.Action) (next State, ok bool) {
	switch a {
	case actions.MoveForward:
		return moveForward(w, s)
	case actions.TurnLeft:
		return s.withDir(s.Dir.Left()), true
	case actions.TurnRight:
		return s.withDir(s.Dir.Right()), true
	case actions.Collect:
		c, found := w.CollectibleAt(s.Pos)
		if !found || s.collected[c.Ordinal] {
			return s, false
		}
		return s.withCollected(c.Ordinal), true
	case actions.Jump:
		return jump(w, s)
	case actions.ToggleSwitch:
		sw, found := w.SwitchAt(s.Pos)
		if !found {
			return s, false
		}
		return s.withToggled(sw.Ordinal), true
	}
	return s, false
}

func moveForward(w *world.World, s State) (State, bool) {
	dest := s.Pos.Add(s.Dir.Vector())
	destKind := w.TerrainAt(dest)

	// Level walk: the destination is passable and has ground under it.
	if !destKind.Solid() && w.TerrainAt(dest.Up(-1)) == world.TerrainGround {
		return s.withPos(dest), true
	}

	// Step down off an obstacle: open air ahead, a free landing cell below it
	// and ground under the landing cell.
	if w.TerrainAt(s.Pos.Up(-1)).Solid() &&
		destKind == world.TerrainAir &&
		!w.TerrainAt(dest.Up(-1)).Solid() &&
		w.TerrainAt(dest.Up(-2)) == world.TerrainGround {
		return s.withPos(dest.Up(-1)), true
	}
	return s, false
}

func jump(w *world.World, s State) (State, bool) {
	ahead := s.Pos.Add(s.Dir.Vector())
	// Deadly cells are solid but can never be stood on.
	if w.TerrainAt(ahead) != world.TerrainSolid {
		return s, false
	}
	if w.TerrainAt(ahead.Up(1)) != world.TerrainAir {
		return s, false
	}
	if w.TerrainAt(s.Pos.Up(-1)) != world.TerrainGround {
		return s, false
	}
	return s.withPos(ahead.Up(1)), true
}

// Costs are the per-action path costs.
type Costs struct {
	Move    float64
	InPlace float64
}

func DefaultCosts() Costs { return Costs{Move: 1, InPlace: 1.1} }

func (c Costs) Of(a actions.Action) float64 {
	if a.InPlace() {
		return c.InPlace
	}
	return c.Move
}
