package report

import (
	"reflect"
	"strings"
	"testing"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/synth"
)

func sampleProgram() synth.Program {
	return synth.Program{
		Main: []synth.Block{
			synth.CallBlock("PROCEDURE_1"),
			synth.RepeatBlock(3, []synth.Block{
				synth.ActionBlock(actions.MoveForward),
				synth.ActionBlock(actions.TurnLeft),
			}),
			synth.ActionBlock(actions.Collect),
		},
		Procedures: []synth.Procedure{{
			Name: "PROCEDURE_1",
			Body: []synth.Block{
				synth.ActionBlock(actions.Jump),
				synth.ActionBlock(actions.ToggleSwitch),
			},
		}},
	}
}

func TestCountBlocks(t *testing.T) {
	cases := []struct {
		name string
		p    synth.Program
		want int
	}{
		{"empty", synth.Program{}, 1},
		{"corridor", synth.Program{Main: []synth.Block{
			synth.RepeatBlock(5, []synth.Block{synth.ActionBlock(actions.MoveForward)}),
		}}, 3},
		// entry 1 + header 1 + 2 body + call 1 + repeat 1 + 2 body + collect 1
		{"sample", sampleProgram(), 9},
	}
	for _, c := range cases {
		if got := CountBlocks(c.p); got != c.want {
			t.Fatalf("%s: CountBlocks=%d want %d", c.name, got, c.want)
		}
	}
}

func TestCountBlocks_NeverExceedsRawPath(t *testing.T) {
	paths := [][]actions.Action{
		{actions.MoveForward},
		{actions.MoveForward, actions.TurnRight, actions.MoveForward, actions.TurnRight, actions.MoveForward, actions.TurnRight},
		{actions.MoveForward, actions.MoveForward, actions.MoveForward, actions.Collect, actions.MoveForward, actions.MoveForward, actions.MoveForward, actions.Collect},
	}
	vocab := synth.Vocabulary{Loops: true, Procedures: true}
	for _, path := range paths {
		p := synth.Synthesize(path, vocab, synth.DefaultOptions())
		if got, raw := CountBlocks(p), len(path)+1; got > raw {
			t.Fatalf("path %v: %d blocks > %d raw", path, got, raw)
		}
	}
}

func TestFormat(t *testing.T) {
	want := strings.Join([]string{
		"DEFINE PROCEDURE_1:",
		"  jump",
		"  toggleSwitch",
		"",
		"MAIN PROGRAM:",
		"  On start:",
		"    CALL PROCEDURE_1",
		"    repeat (3) do:",
		"      moveForward",
		"      turnLeft",
		"    collect",
		"",
	}, "\n")
	if got := Format(sampleProgram()); got != want {
		t.Fatalf("Format:\n%s\nwant:\n%s", got, want)
	}
}

func TestLines(t *testing.T) {
	got := Lines(synth.Program{Main: []synth.Block{
		synth.RepeatBlock(5, []synth.Block{synth.ActionBlock(actions.MoveForward)}),
	}})
	want := []string{"MAIN PROGRAM:", "  On start:", "    repeat (5) do:", "      moveForward"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines=%q want %q", got, want)
	}

	empty := Lines(synth.Program{})
	if want := []string{"MAIN PROGRAM:", "  On start:"}; !reflect.DeepEqual(empty, want) {
		t.Fatalf("Lines(empty)=%q want %q", empty, want)
	}
}

func TestBlocklyXML(t *testing.T) {
	s, err := BlocklyXML(sampleProgram())
	if err != nil {
		t.Fatalf("BlocklyXML: %v", err)
	}
	for _, frag := range []string{
		`<block type="procedures_defnoreturn"`,
		`<field name="NAME">PROCEDURE_1</field>`,
		`<block type="procedures_callnoreturn"><mutation name="PROCEDURE_1"></mutation>`,
		`<block type="maze_repeat"><field name="NUM">3</field><statement name="DO">`,
		`<block type="maze_turn"><field name="DIR">turnLeft</field>`,
		`<block type="maze_start" deletable="false"`,
		`<block type="maze_collect">`,
	} {
		if !strings.Contains(s, frag) {
			t.Fatalf("xml missing %q:\n%s", frag, s)
		}
	}
	if strings.Index(s, BlockDefine) > strings.Index(s, BlockStart) {
		t.Fatalf("procedure definitions should precede the start block")
	}

	back, err := ParseBlocklyXML(s)
	if err != nil {
		t.Fatalf("ParseBlocklyXML: %v", err)
	}
	if !reflect.DeepEqual(back, sampleProgram()) {
		t.Fatalf("parsed %+v want %+v", back, sampleProgram())
	}
}

func TestParseBlocklyXML_Rejects(t *testing.T) {
	cases := map[string]string{
		"no start":      `<xml><block type="procedures_defnoreturn"><field name="NAME">P</field></block></xml>`,
		"bad repeat":    `<xml><block type="maze_start"><statement name="DO"><block type="maze_repeat"><field name="NUM">0</field></block></statement></block></xml>`,
		"unknown":       `<xml><block type="maze_start"><statement name="DO"><block type="controls_if"></block></statement></block></xml>`,
		"bad turn":      `<xml><block type="maze_start"><statement name="DO"><block type="maze_turn"><field name="DIR">up</field></block></statement></block></xml>`,
		"not xml":       `<xml`,
		"nameless call": `<xml><block type="maze_start"><statement name="DO"><block type="procedures_callnoreturn"></block></statement></block></xml>`,
	}
	for name, in := range cases {
		if _, err := ParseBlocklyXML(in); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
