package synth

import (
	"encoding/json"
	"reflect"
	"testing"

	"blockmaze.ai/internal/sim/actions"
)

var (
	mF = actions.MoveForward
	tL = actions.TurnLeft
	tR = actions.TurnRight
	cl = actions.Collect
	jp = actions.Jump
)

func repeatN(n int, seq ...actions.Action) []actions.Action {
	var out []actions.Action
	for i := 0; i < n; i++ {
		out = append(out, seq...)
	}
	return out
}

func TestCompress_AlternatingPairs(t *testing.T) {
	got := Compress(Tokens(repeatN(6, mF, tR)), true)
	want := []Block{RepeatBlock(6, []Block{ActionBlock(mF), ActionBlock(tR)})}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestCompress_Corridor(t *testing.T) {
	got := Compress(Tokens(repeatN(5, mF)), true)
	want := []Block{RepeatBlock(5, []Block{ActionBlock(mF)})}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestCompress_LoopMustBeWorthIt(t *testing.T) {
	// Two moves as a loop would cost 2 blocks, the same as writing them out.
	got := Compress(Tokens([]actions.Action{mF, mF, tL}), true)
	want := []Block{ActionBlock(mF), ActionBlock(mF), ActionBlock(tL)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestCompress_NestedLoops(t *testing.T) {
	path := repeatN(3, append(repeatN(3, mF), tR)...)
	got := Compress(Tokens(path), true)
	want := []Block{RepeatBlock(3, []Block{
		RepeatBlock(3, []Block{ActionBlock(mF)}),
		ActionBlock(tR),
	})}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestCompress_LoopsDisallowed(t *testing.T) {
	got := Compress(Tokens(repeatN(4, mF)), false)
	if len(got) != 4 {
		t.Fatalf("got %d blocks want 4 literals", len(got))
	}
	for _, b := range got {
		if b.Kind != KindAction {
			t.Fatalf("unexpected block %+v", b)
		}
	}
}

func TestCompress_Idempotent(t *testing.T) {
	paths := [][]actions.Action{
		repeatN(6, mF, tR),
		append(repeatN(4, mF), tL, cl, jp, mF, mF, mF),
		repeatN(3, append(repeatN(3, mF), tR)...),
		{mF, tL, mF, tL, cl},
	}
	for _, path := range paths {
		first := Compress(Tokens(path), true)
		flat, err := Program{Main: first}.Flatten()
		if err != nil {
			t.Fatalf("Flatten: %v", err)
		}
		if !reflect.DeepEqual(flat, path) {
			t.Fatalf("flatten mismatch: got %v want %v", flat, path)
		}
		second := Compress(Tokens(flat), true)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("not idempotent for %v:\n%+v\n%+v", path, first, second)
		}
	}
}

func TestSynthesize_Empty(t *testing.T) {
	p := Synthesize(nil, Vocabulary{Loops: true, Procedures: true}, DefaultOptions())
	if len(p.Main) != 0 || len(p.Procedures) != 0 {
		t.Fatalf("got %+v want empty program", p)
	}
}

func TestSynthesize_ExtractsProcedure(t *testing.T) {
	s := []actions.Action{mF, tL, jp, cl}
	var path []actions.Action
	path = append(path, s...)
	path = append(path, mF)
	path = append(path, s...)
	path = append(path, tR)
	path = append(path, s...)

	p := Synthesize(path, Vocabulary{Procedures: true}, DefaultOptions())
	if len(p.Procedures) != 1 || p.Procedures[0].Name != "PROCEDURE_1" {
		t.Fatalf("procedures=%+v", p.Procedures)
	}
	wantBody := []Block{ActionBlock(mF), ActionBlock(tL), ActionBlock(jp), ActionBlock(cl)}
	if !reflect.DeepEqual(p.Procedures[0].Body, wantBody) {
		t.Fatalf("body=%+v", p.Procedures[0].Body)
	}
	wantMain := []Block{
		CallBlock("PROCEDURE_1"), ActionBlock(mF),
		CallBlock("PROCEDURE_1"), ActionBlock(tR),
		CallBlock("PROCEDURE_1"),
	}
	if !reflect.DeepEqual(p.Main, wantMain) {
		t.Fatalf("main=%+v", p.Main)
	}

	flat, err := p.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if !reflect.DeepEqual(flat, path) {
		t.Fatalf("flatten mismatch: got %v want %v", flat, path)
	}
}

func TestSynthesize_ProceduresBeforeLoops(t *testing.T) {
	path := repeatN(6, mF, tR)
	p := Synthesize(path, Vocabulary{Loops: true, Procedures: true}, DefaultOptions())

	// The six-long window scores highest and occurs twice without overlap.
	wantProc := []Block{RepeatBlock(3, []Block{ActionBlock(mF), ActionBlock(tR)})}
	if len(p.Procedures) != 1 || !reflect.DeepEqual(p.Procedures[0].Body, wantProc) {
		t.Fatalf("procedures=%+v", p.Procedures)
	}
	wantMain := []Block{CallBlock("PROCEDURE_1"), CallBlock("PROCEDURE_1")}
	if !reflect.DeepEqual(p.Main, wantMain) {
		t.Fatalf("main=%+v", p.Main)
	}
}

func TestSynthesize_NoProceduresWithoutMarker(t *testing.T) {
	p := Synthesize(repeatN(6, mF, tR), Vocabulary{Loops: true}, DefaultOptions())
	if len(p.Procedures) != 0 {
		t.Fatalf("unexpected procedures %+v", p.Procedures)
	}
}

func TestSavings(t *testing.T) {
	cases := []struct{ n, freq, want int }{
		{4, 3, 1},
		{6, 4, 8},
		{10, 2, -2},
		{3, 2, -2},
	}
	for _, c := range cases {
		if got := Savings(c.n, c.freq); got != c.want {
			t.Fatalf("Savings(%d,%d)=%d want %d", c.n, c.freq, got, c.want)
		}
	}
}

func TestReplaceAll_NonOverlapping(t *testing.T) {
	in := Tokens([]actions.Action{mF, mF, mF, mF, mF})
	got := replaceAll(in, Tokens([]actions.Action{mF, mF}), Token{Call: "P"})
	want := []Token{{Call: "P"}, {Call: "P"}, ActionToken(mF)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestProgramJSON(t *testing.T) {
	p := Program{
		Main: []Block{
			RepeatBlock(2, []Block{ActionBlock(mF), ActionBlock(tL)}),
			CallBlock("PROCEDURE_1"),
		},
		Procedures: []Procedure{{Name: "PROCEDURE_1", Body: []Block{ActionBlock(cl)}}},
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"main":[{"type":"maze_repeat","times":2,"body":[{"type":"moveForward"},{"type":"maze_turn","direction":"turnLeft"}]},{"type":"CALL","name":"PROCEDURE_1"}],"procedures":{"PROCEDURE_1":[{"type":"collect"}]}}`
	if string(raw) != want {
		t.Fatalf("json=%s\nwant %s", raw, want)
	}

	var back Program
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, p) {
		t.Fatalf("decoded %+v want %+v", back, p)
	}
}

func TestProgramJSON_ProcedureOrder(t *testing.T) {
	raw := `{"main":[],"procedures":{"PROCEDURE_10":[],"PROCEDURE_2":[],"PROCEDURE_1":[]}}`
	var p Program
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	var names []string
	for _, pr := range p.Procedures {
		names = append(names, pr.Name)
	}
	if want := []string{"PROCEDURE_1", "PROCEDURE_2", "PROCEDURE_10"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("order=%v want %v", names, want)
	}
}

func TestFlatten_UnknownProcedure(t *testing.T) {
	_, err := Program{Main: []Block{CallBlock("nope")}}.Flatten()
	if err == nil {
		t.Fatalf("expected error")
	}
}
