package indexdb

import (
	"time"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/pipeline"
	"blockmaze.ai/internal/sim/synth"
)

// SolveRow is one indexed solve, keyed by the level digest.
type SolveRow struct {
	Digest       string           `json:"digest"`
	TuningDigest string           `json:"tuning_digest,omitempty"`
	LevelID      string           `json:"level_id,omitempty"`
	Source       string           `json:"source,omitempty"`
	Found        bool             `json:"found"`
	BlockCount   int              `json:"block_count"`
	Actions      []actions.Action `json:"actions"`
	Structured   []string         `json:"structured,omitempty"`
	Program      synth.Program    `json:"program"`
	Cost         float64          `json:"cost"`
	Expanded     int              `json:"expanded"`
	Visited      int              `json:"visited"`
	ElapsedMs    int64            `json:"elapsed_ms"`
	RecordedAt   time.Time        `json:"recorded_at"`
}

// RowOf converts a pipeline solution; source names the caller (file path,
// request id).
func RowOf(sol pipeline.Solution, source string) SolveRow {
	return SolveRow{
		Digest:       sol.Digest,
		TuningDigest: sol.TuningDigest,
		LevelID:      sol.LevelID,
		Source:       source,
		Found:        sol.Found,
		BlockCount:   sol.BlockCount,
		Actions:      sol.RawActions,
		Structured:   sol.Structured,
		Program:      sol.Program,
		Cost:         sol.Cost,
		Expanded:     sol.Expanded,
		Visited:      sol.Visited,
		ElapsedMs:    sol.Elapsed.Milliseconds(),
		RecordedAt:   time.Now().UTC(),
	}
}

// Index receives solve rows. Implementations must not block the caller.
type Index interface {
	RecordSolve(row SolveRow)
	Close() error
}

// Multi fans rows out to several indexes.
type Multi []Index

func (m Multi) RecordSolve(row SolveRow) {
	for _, ix := range m {
		if ix != nil {
			ix.RecordSolve(row)
		}
	}
}

func (m Multi) Close() error {
	var first error
	for _, ix := range m {
		if ix == nil {
			continue
		}
		if err := ix.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
