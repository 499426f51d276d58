package actions

import "fmt"

// Action is one step of a solution path. The set is closed: every switch over
// Action in this module is exhaustive.
type Action uint8

const (
	MoveForward Action = iota
	TurnLeft
	TurnRight
	Collect
	Jump
	ToggleSwitch

	numActions
)

// ExpansionOrder is the fixed order in which the solver tries actions.
var ExpansionOrder = [...]Action{MoveForward, TurnLeft, TurnRight, Collect, Jump, ToggleSwitch}

var names = [numActions]string{
	MoveForward:  "moveForward",
	TurnLeft:     "turnLeft",
	TurnRight:    "turnRight",
	Collect:      "collect",
	Jump:         "jump",
	ToggleSwitch: "toggleSwitch",
}

var blockTypes = [numActions]string{
	MoveForward:  "maze_moveForward",
	TurnLeft:     "maze_turn",
	TurnRight:    "maze_turn",
	Collect:      "maze_collect",
	Jump:         "maze_jump",
	ToggleSwitch: "maze_toggleSwitch",
}

func (a Action) Valid() bool { return a < numActions }

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
	return names[a]
}

// BlockType is the block editor type used to render the action.
func (a Action) BlockType() string {
	if !a.Valid() {
		return ""
	}
	return blockTypes[a]
}

func (a Action) IsTurn() bool { return a == TurnLeft || a == TurnRight }

// InPlace reports whether the action never displaces the player.
func (a Action) InPlace() bool {
	switch a {
	case TurnLeft, TurnRight, Collect, ToggleSwitch:
		return true
	case MoveForward, Jump:
		return false
	}
	return false
}

func Parse(s string) (Action, error) {
	for i, n := range names {
		if n == s {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action %d", uint8(a))
	}
	return []byte(names[a]), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Names renders a path as action identifiers.
func Names(path []Action) []string {
	out := make([]string, len(path))
	for i, a := range path {
		out[i] = a.String()
	}
	return out
}

// ParseAll is the inverse of Names.
func ParseAll(ss []string) ([]Action, error) {
	out := make([]Action, 0, len(ss))
	for i, s := range ss {
		a, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}
