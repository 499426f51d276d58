package actions

import (
	"encoding/json"
	"testing"
)

func TestParse_AllNames(t *testing.T) {
	for _, a := range ExpansionOrder {
		got, err := Parse(a.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", a.String(), err)
		}
		if got != a {
			t.Fatalf("Parse(%q)=%v want %v", a.String(), got, a)
		}
	}
	if _, err := Parse("fly"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestExpansionOrder_Fixed(t *testing.T) {
	want := []string{"moveForward", "turnLeft", "turnRight", "collect", "jump", "toggleSwitch"}
	for i, a := range ExpansionOrder {
		if a.String() != want[i] {
			t.Fatalf("order[%d]=%s want %s", i, a, want[i])
		}
	}
}

func TestInPlace(t *testing.T) {
	cases := map[Action]bool{
		MoveForward:  false,
		Jump:         false,
		TurnLeft:     true,
		TurnRight:    true,
		Collect:      true,
		ToggleSwitch: true,
	}
	for a, want := range cases {
		if got := a.InPlace(); got != want {
			t.Fatalf("%s.InPlace()=%v want %v", a, got, want)
		}
	}
}

func TestJSON_UsesNames(t *testing.T) {
	b, err := json.Marshal([]Action{MoveForward, TurnRight})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `["moveForward","turnRight"]` {
		t.Fatalf("json=%s", b)
	}
	var back []Action
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 2 || back[0] != MoveForward || back[1] != TurnRight {
		t.Fatalf("back=%v", back)
	}
}
