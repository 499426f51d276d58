package synth

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"blockmaze.ai/internal/sim/actions"
)

// JSON block types shared with the level generator.
const (
	TypeRepeat = "maze_repeat"
	TypeTurn   = "maze_turn"
	TypeCall   = "CALL"
)

type Kind uint8

const (
	KindAction Kind = iota
	KindRepeat
	KindCall
)

// Block is one node of a synthesized program.
type Block struct {
	Kind Kind

	Action actions.Action // KindAction

	Times int     // KindRepeat
	Body  []Block // KindRepeat

	Name string // KindCall
}

func ActionBlock(a actions.Action) Block { return Block{Kind: KindAction, Action: a} }

func RepeatBlock(times int, body []Block) Block {
	return Block{Kind: KindRepeat, Times: times, Body: body}
}

func CallBlock(name string) Block { return Block{Kind: KindCall, Name: name} }

type blockJSON struct {
	Type      string      `json:"type"`
	Times     int         `json:"times,omitempty"`
	Body      []blockJSON `json:"body,omitempty"`
	Direction string      `json:"direction,omitempty"`
	Name      string      `json:"name,omitempty"`
}

func (b Block) toJSON() blockJSON {
	switch b.Kind {
	case KindRepeat:
		body := make([]blockJSON, len(b.Body))
		for i, c := range b.Body {
			body[i] = c.toJSON()
		}
		return blockJSON{Type: TypeRepeat, Times: b.Times, Body: body}
	case KindCall:
		return blockJSON{Type: TypeCall, Name: b.Name}
	}
	if b.Action.IsTurn() {
		return blockJSON{Type: TypeTurn, Direction: b.Action.String()}
	}
	return blockJSON{Type: b.Action.String()}
}

func (j blockJSON) toBlock() (Block, error) {
	switch j.Type {
	case TypeRepeat:
		if j.Times < 1 {
			return Block{}, fmt.Errorf("repeat: bad times %d", j.Times)
		}
		body := make([]Block, len(j.Body))
		for i, c := range j.Body {
			b, err := c.toBlock()
			if err != nil {
				return Block{}, err
			}
			body[i] = b
		}
		return RepeatBlock(j.Times, body), nil
	case TypeCall:
		if j.Name == "" {
			return Block{}, fmt.Errorf("call: missing name")
		}
		return CallBlock(j.Name), nil
	case TypeTurn:
		a, err := actions.Parse(j.Direction)
		if err != nil || !a.IsTurn() {
			return Block{}, fmt.Errorf("turn: bad direction %q", j.Direction)
		}
		return ActionBlock(a), nil
	}
	a, err := actions.Parse(j.Type)
	if err != nil {
		return Block{}, fmt.Errorf("unknown block type %q", j.Type)
	}
	return ActionBlock(a), nil
}

func (b Block) MarshalJSON() ([]byte, error) { return json.Marshal(b.toJSON()) }

func (b *Block) UnmarshalJSON(data []byte) error {
	var j blockJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	out, err := j.toBlock()
	if err != nil {
		return err
	}
	*b = out
	return nil
}

type Procedure struct {
	Name string
	Body []Block
}

// Program is a main block list plus named procedures in definition order.
type Program struct {
	Main       []Block
	Procedures []Procedure
}

func (p Program) Procedure(name string) (Procedure, bool) {
	for _, pr := range p.Procedures {
		if pr.Name == name {
			return pr, true
		}
	}
	return Procedure{}, false
}

type programJSON struct {
	Main       []Block            `json:"main"`
	Procedures map[string][]Block `json:"procedures"`
}

func (p Program) MarshalJSON() ([]byte, error) {
	out := programJSON{Main: p.Main, Procedures: make(map[string][]Block, len(p.Procedures))}
	if out.Main == nil {
		out.Main = []Block{}
	}
	for _, pr := range p.Procedures {
		out.Procedures[pr.Name] = pr.Body
	}
	return json.Marshal(out)
}

func (p *Program) UnmarshalJSON(data []byte) error {
	var in programJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	names := make([]string, 0, len(in.Procedures))
	for name := range in.Procedures {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return procedureLess(names[i], names[j]) })

	p.Main = in.Main
	p.Procedures = p.Procedures[:0]
	for _, name := range names {
		p.Procedures = append(p.Procedures, Procedure{Name: name, Body: in.Procedures[name]})
	}
	return nil
}

// procedureLess orders generated names by their numeric suffix so that
// PROCEDURE_10 sorts after PROCEDURE_9.
func procedureLess(a, b string) bool {
	na, oka := procedureIndex(a)
	nb, okb := procedureIndex(b)
	if oka && okb && na != nb {
		return na < nb
	}
	return a < b
}

func procedureIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, ProcedurePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

// maxCallDepth bounds procedure expansion in Flatten.
const maxCallDepth = 32

// Flatten expands loops and calls back into the raw action path.
func (p Program) Flatten() ([]actions.Action, error) {
	var out []actions.Action
	if err := p.flatten(p.Main, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p Program) flatten(blocks []Block, depth int, out *[]actions.Action) error {
	if depth > maxCallDepth {
		return fmt.Errorf("flatten: call depth exceeds %d", maxCallDepth)
	}
	for _, b := range blocks {
		switch b.Kind {
		case KindAction:
			*out = append(*out, b.Action)
		case KindRepeat:
			for i := 0; i < b.Times; i++ {
				if err := p.flatten(b.Body, depth, out); err != nil {
					return err
				}
			}
		case KindCall:
			pr, ok := p.Procedure(b.Name)
			if !ok {
				return fmt.Errorf("flatten: unknown procedure %q", b.Name)
			}
			if err := p.flatten(pr.Body, depth+1, out); err != nil {
				return err
			}
		}
	}
	return nil
}
