// Package report renders synthesized programs: the structural block count,
// the indented text listing and the Blockly workspace XML.
package report

import (
	"strconv"
	"strings"

	"blockmaze.ai/internal/sim/synth"
)

// CountBlocks counts one unit per literal action, loop wrapper, call site and
// procedure header, plus one for the entry block.
func CountBlocks(p synth.Program) int {
	total := 1
	for _, pr := range p.Procedures {
		total += 1 + countList(pr.Body)
	}
	return total + countList(p.Main)
}

func countList(blocks []synth.Block) int {
	n := 0
	for _, b := range blocks {
		n++
		if b.Kind == synth.KindRepeat {
			n += countList(b.Body)
		}
	}
	return n
}

// Format renders p as an indented listing: procedure definitions first, then
// the main program under "On start:".
func Format(p synth.Program) string {
	var b strings.Builder
	if len(p.Procedures) > 0 {
		for _, pr := range p.Procedures {
			b.WriteString("DEFINE ")
			b.WriteString(pr.Name)
			b.WriteString(":\n")
			writeBlocks(&b, pr.Body, 1)
		}
		b.WriteByte('\n')
	}
	b.WriteString("MAIN PROGRAM:\n  On start:\n")
	writeBlocks(&b, p.Main, 2)
	return b.String()
}

func writeBlocks(b *strings.Builder, blocks []synth.Block, indent int) {
	prefix := strings.Repeat("  ", indent)
	for _, blk := range blocks {
		b.WriteString(prefix)
		switch blk.Kind {
		case synth.KindRepeat:
			b.WriteString("repeat (")
			b.WriteString(strconv.Itoa(blk.Times))
			b.WriteString(") do:\n")
			writeBlocks(b, blk.Body, indent+1)
			continue
		case synth.KindCall:
			b.WriteString("CALL ")
			b.WriteString(blk.Name)
		default:
			b.WriteString(blk.Action.String())
		}
		b.WriteByte('\n')
	}
}

// Lines is the listing split into lines with outer whitespace trimmed, the
// form stored as structuredSolution.
func Lines(p synth.Program) []string {
	return strings.Split(strings.TrimSpace(Format(p)), "\n")
}
