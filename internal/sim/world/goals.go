package world

import "sort"

const (
	GoalReachTarget = "reach_target"

	GoalKeySwitch = "switch"
	// GoalKeyObstacle goals are accepted but always count as met.
	GoalKeyObstacle = "obstacle"
)

type ItemGoal struct {
	Key   string
	Count int
}

type Goals struct {
	Type  string
	Items []ItemGoal // sorted by key
}

func goalsOf(sc SolutionConfig) Goals {
	g := Goals{Type: sc.Type}
	if g.Type == "" {
		g.Type = GoalReachTarget
	}
	for k, n := range sc.ItemGoals {
		g.Items = append(g.Items, ItemGoal{Key: k, Count: n})
	}
	sort.Slice(g.Items, func(i, j int) bool { return g.Items[i].Key < g.Items[j].Key })
	return g
}

// SwitchesRequired returns how many switches must be on.
func (g Goals) SwitchesRequired() int {
	for _, it := range g.Items {
		if it.Key == GoalKeySwitch {
			return it.Count
		}
	}
	return 0
}

// CollectibleRequired returns the required count for a collectible type.
func (g Goals) CollectibleRequired(itemType string) int {
	if itemType == GoalKeySwitch || itemType == GoalKeyObstacle {
		return 0
	}
	for _, it := range g.Items {
		if it.Key == itemType {
			return it.Count
		}
	}
	return 0
}
