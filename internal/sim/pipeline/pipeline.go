// Package pipeline chains the solver, the synthesizer and the reporters into
// one solve of a level.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/report"
	"blockmaze.ai/internal/sim/solver"
	"blockmaze.ai/internal/sim/synth"
	"blockmaze.ai/internal/sim/tuning"
	"blockmaze.ai/internal/sim/world"
)

type Solution struct {
	LevelID string
	Digest  string
	// TuningDigest is Tuning.ResultDigest of the configuration that produced
	// the solution.
	TuningDigest string
	Found        bool

	BlockCount int
	Program    synth.Program
	RawActions []actions.Action
	Structured []string
	XML        string

	Cost     float64
	Expanded int
	Visited  int
	Elapsed  time.Duration
}

// Pipeline holds the configuration shared by every solve. It has no mutable
// state and can be used from several goroutines.
type Pipeline struct {
	Terrain catalogs.TerrainCatalog
	Tuning  tuning.Tuning
}

func New(terrain catalogs.TerrainCatalog, t tuning.Tuning) *Pipeline {
	return &Pipeline{Terrain: terrain, Tuning: t}
}

func (p *Pipeline) SolverOptions() solver.Options {
	s := p.Tuning.Search
	return solver.Options{
		Costs:            solver.Costs{Move: s.MoveCost, InPlace: s.InPlaceCost},
		UnmetGoalPenalty: s.UnmetGoalPenalty,
		MaxExpansions:    s.MaxExpansions,
	}
}

func (p *Pipeline) SynthOptions() synth.Options {
	s := p.Tuning.Synth
	return synth.Options{ProcedureRounds: s.ProcedureRounds, MinLen: s.ProcedureMinLen, MaxLen: s.ProcedureMaxLen}
}

// SolveJSON parses raw level JSON and solves it.
func (p *Pipeline) SolveJSON(ctx context.Context, raw []byte) (Solution, error) {
	w, err := world.FromJSON(raw, p.Terrain)
	if err != nil {
		return Solution{}, err
	}
	return p.SolveWorld(ctx, w)
}

func (p *Pipeline) SolveLevel(ctx context.Context, lv world.Level) (Solution, error) {
	w, err := world.New(lv, p.Terrain)
	if err != nil {
		return Solution{}, err
	}
	return p.SolveWorld(ctx, w)
}

// SolveWorld searches w and, when a path exists, synthesizes and renders the
// program. An unsolvable level yields Found=false and a nil error.
func (p *Pipeline) SolveWorld(ctx context.Context, w *world.World) (Solution, error) {
	if d := p.Tuning.Search.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	started := time.Now()
	res, err := solver.Solve(ctx, w, p.SolverOptions())
	sol := Solution{
		LevelID:      w.ID(),
		Digest:       w.Digest(),
		TuningDigest: p.Tuning.ResultDigest(),
		Expanded:     res.Expanded,
		Visited:      res.Visited,
		Elapsed:      time.Since(started),
	}
	if err != nil {
		return sol, fmt.Errorf("solve %s: %w", w.ID(), err)
	}
	if !res.Found {
		return sol, nil
	}

	vocab := synth.Vocabulary{Loops: w.LoopsAllowed(), Procedures: w.ProceduresAllowed()}
	prog := synth.Synthesize(res.Path, vocab, p.SynthOptions())
	xml, err := report.BlocklyXML(prog)
	if err != nil {
		return sol, err
	}

	sol.Found = true
	sol.Cost = res.Cost
	sol.RawActions = res.Path
	sol.Program = prog
	sol.BlockCount = report.CountBlocks(prog)
	sol.Structured = report.Lines(prog)
	sol.XML = xml
	sol.Elapsed = time.Since(started)
	return sol, nil
}
