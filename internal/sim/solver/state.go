package solver

import (
	"fmt"
	"strconv"
	"strings"

	"blockmaze.ai/internal/sim/world"
)

// State is a snapshot of the player pose and the dynamic world facts. Values
// are never mutated in place: transitions return a new State that shares the
// unchanged bitsets with its parent.
type State struct {
	w *world.World

	Pos world.Vec3i
	Dir world.Dir

	collected []bool // by collectible ordinal
	switches  []bool // by switch ordinal, true = on
}

// NewState returns the start state of w with switches at their initial positions.
func NewState(w *world.World) State {
	sw := w.Switches()
	on := make([]bool, len(sw))
	for i, s := range sw {
		on[i] = s.InitialOn
	}
	start := w.Start()
	return State{
		w:         w,
		Pos:       start.Pos,
		Dir:       start.Dir,
		collected: make([]bool, len(w.Collectibles())),
		switches:  on,
	}
}

// StateOf rebuilds a state from its observable parts. Switches missing from
// switchStates keep their initial state.
func StateOf(w *world.World, pose world.Pose, collected []string, switchStates map[string]string) (State, error) {
	s := NewState(w)
	s.Pos = pose.Pos
	s.Dir = pose.Dir
	for _, id := range collected {
		c, ok := w.CollectibleByID(id)
		if !ok {
			return State{}, fmt.Errorf("unknown collectible %q", id)
		}
		s.collected[c.Ordinal] = true
	}
	for id, v := range switchStates {
		sw, ok := w.SwitchByID(id)
		if !ok {
			return State{}, fmt.Errorf("unknown switch %q", id)
		}
		switch v {
		case world.SwitchOn:
			s.switches[sw.Ordinal] = true
		case world.SwitchOff:
			s.switches[sw.Ordinal] = false
		default:
			return State{}, fmt.Errorf("switch %s: bad state %q", id, v)
		}
	}
	return s, nil
}

func (s State) Pose() world.Pose { return world.Pose{Pos: s.Pos, Dir: s.Dir} }

func (s State) withPos(p world.Vec3i) State {
	s.Pos = p
	return s
}

func (s State) withDir(d world.Dir) State {
	s.Dir = d
	return s
}

func (s State) withCollected(ord int) State {
	next := make([]bool, len(s.collected))
	copy(next, s.collected)
	next[ord] = true
	s.collected = next
	return s
}

func (s State) withToggled(ord int) State {
	next := make([]bool, len(s.switches))
	copy(next, s.switches)
	next[ord] = !next[ord]
	s.switches = next
	return s
}

// Collected returns the collected ids in sorted order.
func (s State) Collected() []string {
	cs := s.w.Collectibles()
	out := make([]string, 0, len(cs))
	for i, ok := range s.collected {
		if ok {
			out = append(out, cs[i].ID)
		}
	}
	return out
}

func (s State) IsCollected(id string) bool {
	c, ok := s.w.CollectibleByID(id)
	return ok && s.collected[c.Ordinal]
}

// CollectedOfType counts collected items whose type is itemType.
func (s State) CollectedOfType(itemType string) int {
	cs := s.w.Collectibles()
	n := 0
	for i, ok := range s.collected {
		if ok && cs[i].Type == itemType {
			n++
		}
	}
	return n
}

func (s State) SwitchState(id string) (string, bool) {
	sw, ok := s.w.SwitchByID(id)
	if !ok {
		return "", false
	}
	if s.switches[sw.Ordinal] {
		return world.SwitchOn, true
	}
	return world.SwitchOff, true
}

// SwitchStates returns a fresh copy of every switch state keyed by id.
func (s State) SwitchStates() map[string]string {
	sw := s.w.Switches()
	out := make(map[string]string, len(sw))
	for i, on := range s.switches {
		if on {
			out[sw[i].ID] = world.SwitchOn
		} else {
			out[sw[i].ID] = world.SwitchOff
		}
	}
	return out
}

func (s State) SwitchesOn() int {
	n := 0
	for _, on := range s.switches {
		if on {
			n++
		}
	}
	return n
}

// Key is the canonical encoding used for visited-set deduplication:
// "x,y,z,dir|i:<sorted items>|s:<sorted id:state>".
func (s State) Key() string {
	var b strings.Builder
	b.Grow(32 + 8*len(s.collected) + 12*len(s.switches))
	b.WriteString(strconv.Itoa(s.Pos.X))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(s.Pos.Y))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(s.Pos.Z))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(int(s.Dir)))

	b.WriteString("|i:")
	cs := s.w.Collectibles()
	first := true
	for i, ok := range s.collected {
		if !ok {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(cs[i].ID)
	}

	b.WriteString("|s:")
	sw := s.w.Switches()
	for i, on := range s.switches {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(sw[i].ID)
		if on {
			b.WriteString(":on")
		} else {
			b.WriteString(":off")
		}
	}
	return b.String()
}
