package encoding

import (
	"encoding/base64"
	"reflect"
	"testing"

	"blockmaze.ai/internal/sim/actions"
)

func TestActions_RoundTrip(t *testing.T) {
	in := []actions.Action{actions.MoveForward, actions.MoveForward, actions.MoveForward, actions.TurnRight}
	for i := 0; i < 50; i++ {
		in = append(in, actions.MoveForward)
	}
	in = append(in, actions.Jump, actions.Collect, actions.ToggleSwitch, actions.ToggleSwitch)

	enc := EncodeActions(in)
	out, err := DecodeActions(enc)
	if err != nil {
		t.Fatalf("DecodeActions: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("got %v want %v", out, in)
	}
}

func TestActions_RunsCollapse(t *testing.T) {
	in := make([]actions.Action, 200)
	// one pair: action 0, run 200 (two-byte varint)
	raw, _ := base64.StdEncoding.DecodeString(EncodeActions(in))
	if len(raw) != 3 {
		t.Fatalf("encoded %d bytes want 3", len(raw))
	}
}

func TestActions_Empty(t *testing.T) {
	if got := EncodeActions(nil); got != "" {
		t.Fatalf("EncodeActions(nil)=%q", got)
	}
	out, err := DecodeActions("")
	if err != nil || len(out) != 0 {
		t.Fatalf("DecodeActions(\"\")=%v, %v", out, err)
	}
}

func TestDecodeActions_Rejects(t *testing.T) {
	enc := func(b ...byte) string { return base64.StdEncoding.EncodeToString(b) }
	cases := map[string]string{
		"bad base64": "%%%",
		"truncated":  enc(0),
		"unknown id": enc(42, 1),
		"zero run":   enc(0, 0),
		"bad varint": enc(0x80),
	}
	for name, in := range cases {
		if _, err := DecodeActions(in); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
