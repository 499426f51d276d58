package report

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/synth"
)

const blocklyNS = "https://developers.google.com/blockly/xml"

// Blockly block types.
const (
	BlockStart  = "maze_start"
	BlockRepeat = "maze_repeat"
	BlockTurn   = "maze_turn"
	BlockDefine = "procedures_defnoreturn"
	BlockCall   = "procedures_callnoreturn"
)

// procedureSpace is the vertical gap between top-level blocks.
const procedureSpace = 160

type xmlDoc struct {
	XMLName xml.Name    `xml:"xml"`
	Xmlns   string      `xml:"xmlns,attr,omitempty"`
	Blocks  []*xmlBlock `xml:"block"`
}

type xmlBlock struct {
	Type       string         `xml:"type,attr"`
	Deletable  string         `xml:"deletable,attr,omitempty"`
	X          string         `xml:"x,attr,omitempty"`
	Y          string         `xml:"y,attr,omitempty"`
	Mutation   *xmlMutation   `xml:"mutation,omitempty"`
	Fields     []xmlField     `xml:"field"`
	Statements []xmlStatement `xml:"statement"`
	Next       *xmlNext       `xml:"next,omitempty"`
}

type xmlMutation struct {
	Name string `xml:"name,attr"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlStatement struct {
	Name  string    `xml:"name,attr"`
	Block *xmlBlock `xml:"block"`
}

type xmlNext struct {
	Block *xmlBlock `xml:"block"`
}

func (b *xmlBlock) field(name string) (string, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func (b *xmlBlock) statement(name string) *xmlBlock {
	for _, s := range b.Statements {
		if s.Name == name {
			return s.Block
		}
	}
	return nil
}

// BlocklyXML renders p as a Blockly workspace: one procedures_defnoreturn per
// procedure followed by the maze_start block holding the main program.
func BlocklyXML(p synth.Program) (string, error) {
	doc := xmlDoc{Xmlns: blocklyNS}
	y := 0
	for _, pr := range p.Procedures {
		doc.Blocks = append(doc.Blocks, &xmlBlock{
			Type:       BlockDefine,
			X:          "0",
			Y:          strconv.Itoa(y),
			Fields:     []xmlField{{Name: "NAME", Value: pr.Name}},
			Statements: []xmlStatement{{Name: "STACK", Block: chain(pr.Body)}},
		})
		y += procedureSpace
	}
	doc.Blocks = append(doc.Blocks, &xmlBlock{
		Type:       BlockStart,
		Deletable:  "false",
		X:          "0",
		Y:          strconv.Itoa(y),
		Statements: []xmlStatement{{Name: "DO", Block: chain(p.Main)}},
	})

	raw, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("blockly xml: %w", err)
	}
	return string(raw), nil
}

// chain links blocks through <next>, returning the head.
func chain(blocks []synth.Block) *xmlBlock {
	var head, tail *xmlBlock
	for _, b := range blocks {
		x := toXML(b)
		if head == nil {
			head = x
		} else {
			tail.Next = &xmlNext{Block: x}
		}
		tail = x
	}
	return head
}

func toXML(b synth.Block) *xmlBlock {
	switch b.Kind {
	case synth.KindRepeat:
		return &xmlBlock{
			Type:       BlockRepeat,
			Fields:     []xmlField{{Name: "NUM", Value: strconv.Itoa(b.Times)}},
			Statements: []xmlStatement{{Name: "DO", Block: chain(b.Body)}},
		}
	case synth.KindCall:
		return &xmlBlock{Type: BlockCall, Mutation: &xmlMutation{Name: b.Name}}
	}
	if b.Action.IsTurn() {
		return &xmlBlock{Type: BlockTurn, Fields: []xmlField{{Name: "DIR", Value: b.Action.String()}}}
	}
	return &xmlBlock{Type: b.Action.BlockType()}
}

// ParseBlocklyXML is the inverse of BlocklyXML. Blocks of unknown types are
// rejected.
func ParseBlocklyXML(s string) (synth.Program, error) {
	var doc xmlDoc
	if err := xml.Unmarshal([]byte(s), &doc); err != nil {
		return synth.Program{}, fmt.Errorf("blockly xml: %w", err)
	}

	var p synth.Program
	sawStart := false
	for _, top := range doc.Blocks {
		switch top.Type {
		case BlockDefine:
			name, ok := top.field("NAME")
			if !ok || name == "" {
				return synth.Program{}, fmt.Errorf("blockly xml: procedure without NAME")
			}
			body, err := unchain(top.statement("STACK"))
			if err != nil {
				return synth.Program{}, err
			}
			p.Procedures = append(p.Procedures, synth.Procedure{Name: name, Body: body})
		case BlockStart:
			if sawStart {
				return synth.Program{}, fmt.Errorf("blockly xml: more than one %s", BlockStart)
			}
			sawStart = true
			body, err := unchain(top.statement("DO"))
			if err != nil {
				return synth.Program{}, err
			}
			p.Main = body
		default:
			return synth.Program{}, fmt.Errorf("blockly xml: unexpected top-level block %q", top.Type)
		}
	}
	if !sawStart {
		return synth.Program{}, fmt.Errorf("blockly xml: missing %s", BlockStart)
	}
	return p, nil
}

func unchain(head *xmlBlock) ([]synth.Block, error) {
	var out []synth.Block
	for x := head; x != nil; {
		b, err := fromXML(x)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		if x.Next == nil {
			break
		}
		x = x.Next.Block
	}
	return out, nil
}

func fromXML(x *xmlBlock) (synth.Block, error) {
	switch x.Type {
	case BlockRepeat:
		v, _ := x.field("NUM")
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return synth.Block{}, fmt.Errorf("blockly xml: bad repeat count %q", v)
		}
		body, err := unchain(x.statement("DO"))
		if err != nil {
			return synth.Block{}, err
		}
		return synth.RepeatBlock(n, body), nil
	case BlockCall:
		if x.Mutation == nil || x.Mutation.Name == "" {
			return synth.Block{}, fmt.Errorf("blockly xml: call without name")
		}
		return synth.CallBlock(x.Mutation.Name), nil
	case BlockTurn:
		v, _ := x.field("DIR")
		a, err := actions.Parse(v)
		if err != nil || !a.IsTurn() {
			return synth.Block{}, fmt.Errorf("blockly xml: bad turn direction %q", v)
		}
		return synth.ActionBlock(a), nil
	}
	for _, a := range actions.ExpansionOrder {
		if !a.IsTurn() && a.BlockType() == x.Type {
			return synth.ActionBlock(a), nil
		}
	}
	return synth.Block{}, fmt.Errorf("blockly xml: unknown block type %q", x.Type)
}
