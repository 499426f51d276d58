package solver

import "blockmaze.ai/internal/sim/world"

// GoalReached reports whether s is at the finish with every declared item goal met.
// Obstacle goals are not modelled and always count as met.
func GoalReached(w *world.World, s State) bool {
	if s.Pos != w.Finish() {
		return false
	}
	for _, g := range w.Goals().Items {
		switch g.Key {
		case world.GoalKeySwitch:
			if s.SwitchesOn() < g.Count {
				return false
			}
		case world.GoalKeyObstacle:
		default:
			if s.CollectedOfType(g.Key) < g.Count {
				return false
			}
		}
	}
	return true
}

// heuristic estimates remaining cost. It is not admissible: it charges the
// farthest sub-goal to finish leg plus a fixed penalty per unmet sub-goal.
func heuristic(w *world.World, s State, penalty int) int {
	subGoals := subGoalPositions(w, s)
	if len(subGoals) == 0 {
		return world.Manhattan(s.Pos, w.Finish())
	}

	finish := w.Finish()
	nearest, farthestToFinish := -1, 0
	for _, p := range subGoals {
		if d := world.Manhattan(s.Pos, p); nearest < 0 || d < nearest {
			nearest = d
		}
		if d := world.Manhattan(p, finish); d > farthestToFinish {
			farthestToFinish = d
		}
	}
	h := nearest
	if len(subGoals) > 1 {
		h += farthestToFinish
	}
	return h + penalty*len(subGoals)
}

// subGoalPositions lists uncollected items of types whose goal is still unmet,
// and off switches while the switch goal is unmet.
func subGoalPositions(w *world.World, s State) []world.Vec3i {
	goals := w.Goals()
	if len(goals.Items) == 0 {
		return nil
	}

	var out []world.Vec3i
	var unmet map[string]bool
	for i, c := range w.Collectibles() {
		if s.collected[i] {
			continue
		}
		if unmet == nil {
			unmet = map[string]bool{}
		}
		open, seen := unmet[c.Type]
		if !seen {
			need := goals.CollectibleRequired(c.Type)
			open = need > 0 && s.CollectedOfType(c.Type) < need
			unmet[c.Type] = open
		}
		if open {
			out = append(out, c.Pos)
		}
	}

	if need := goals.SwitchesRequired(); need > 0 && s.SwitchesOn() < need {
		for i, sw := range w.Switches() {
			if !s.switches[i] {
				out = append(out, sw.Pos)
			}
		}
	}
	return out
}
