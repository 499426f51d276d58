package synth

import (
	"fmt"
	"strings"

	"blockmaze.ai/internal/sim/actions"
)

const ProcedurePrefix = "PROCEDURE_"

// Token is a literal action or, when Call is set, a call to a procedure.
type Token struct {
	Action actions.Action
	Call   string
}

func ActionToken(a actions.Action) Token { return Token{Action: a} }

func (t Token) IsCall() bool { return t.Call != "" }

func (t Token) String() string {
	if t.IsCall() {
		return "CALL:" + t.Call
	}
	return t.Action.String()
}

func Tokens(path []actions.Action) []Token {
	out := make([]Token, len(path))
	for i, a := range path {
		out[i] = ActionToken(a)
	}
	return out
}

// Vocabulary says which structuring blocks the level permits.
type Vocabulary struct {
	Loops      bool
	Procedures bool
}

type Options struct {
	ProcedureRounds int
	MinLen          int
	MaxLen          int
}

func DefaultOptions() Options {
	return Options{ProcedureRounds: 3, MinLen: 3, MaxLen: 10}
}

// Synthesize turns a raw action path into a structured program. It extracts
// up to opts.ProcedureRounds procedures when allowed, then loop-compresses
// the main list and every procedure body.
func Synthesize(path []actions.Action, vocab Vocabulary, opts Options) Program {
	remaining := Tokens(path)
	var prog Program

	if vocab.Procedures {
		for i := 0; i < opts.ProcedureRounds; i++ {
			seq, ok := mostProfitable(remaining, opts.MinLen, opts.MaxLen)
			if !ok {
				break
			}
			name := fmt.Sprintf("%s%d", ProcedurePrefix, i+1)
			prog.Procedures = append(prog.Procedures, Procedure{
				Name: name,
				Body: Compress(seq, vocab.Loops),
			})
			remaining = replaceAll(remaining, seq, Token{Call: name})
		}
	}

	prog.Main = Compress(remaining, vocab.Loops)
	return prog
}

// Compress rewrites repeated runs as repeat blocks. At each position the unit
// with the largest repetition count wins, ties going to the longer unit; a
// loop is only used when R*L > 1+L.
func Compress(tokens []Token, loops bool) []Block {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]Block, 0, len(tokens))
	for i := 0; i < len(tokens); {
		bestLen, bestReps := 0, 0
		if loops {
			for l := 1; l <= len(tokens)/2; l++ {
				if i+2*l > len(tokens) {
					break
				}
				reps := 1
				for i+(reps+1)*l <= len(tokens) && equalRun(tokens[i:i+l], tokens[i+reps*l:i+(reps+1)*l]) {
					reps++
				}
				if reps < 2 || reps*l <= 1+l {
					continue
				}
				if reps >= bestReps {
					bestLen, bestReps = l, reps
				}
			}
		}

		if bestReps > 0 {
			out = append(out, RepeatBlock(bestReps, Compress(tokens[i:i+bestLen], loops)))
			i += bestReps * bestLen
			continue
		}
		if t := tokens[i]; t.IsCall() {
			out = append(out, CallBlock(t.Call))
		} else {
			out = append(out, ActionBlock(t.Action))
		}
		i++
	}
	return out
}

func equalRun(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Savings is the net number of blocks saved by extracting a subsequence of
// length n that occurs freq times into a procedure.
func Savings(n, freq int) int {
	return (freq-1)*n - (n + freq)
}

// mostProfitable counts every window of length [minLen,maxLen] (overlapping)
// and returns the one with the highest positive savings. Ties keep the first
// candidate seen, shorter lengths first, then leftmost.
func mostProfitable(tokens []Token, minLen, maxLen int) ([]Token, bool) {
	type candidate struct {
		start, n int
		freq     int
	}
	counts := map[string]*candidate{}
	var order []*candidate

	for n := minLen; n <= maxLen; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			k := windowKey(tokens[i : i+n])
			if c, ok := counts[k]; ok {
				c.freq++
				continue
			}
			c := &candidate{start: i, n: n, freq: 1}
			counts[k] = c
			order = append(order, c)
		}
	}

	var best *candidate
	bestSavings := 0
	for _, c := range order {
		if c.freq < 2 {
			continue
		}
		if s := Savings(c.n, c.freq); s > bestSavings {
			best, bestSavings = c, s
		}
	}
	if best == nil {
		return nil, false
	}
	seq := make([]Token, best.n)
	copy(seq, tokens[best.start:best.start+best.n])
	return seq, true
}

func windowKey(ts []Token) string {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(t.String())
		b.WriteByte(0)
	}
	return b.String()
}

// replaceAll substitutes non-overlapping occurrences of seq, scanning left to right.
func replaceAll(tokens, seq []Token, with Token) []Token {
	out := make([]Token, 0, len(tokens))
	for j := 0; j < len(tokens); {
		if j+len(seq) <= len(tokens) && equalRun(tokens[j:j+len(seq)], seq) {
			out = append(out, with)
			j += len(seq)
			continue
		}
		out = append(out, tokens[j])
		j++
	}
	return out
}
