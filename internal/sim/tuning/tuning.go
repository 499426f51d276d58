package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Search Search `yaml:"search"`
	Synth  Synth  `yaml:"synth"`

	// MaxBlocksSlack is added to the optimal block count when annotating levels.
	MaxBlocksSlack int `yaml:"max_blocks_slack"`
}

type Search struct {
	MoveCost         float64 `yaml:"move_cost"`
	InPlaceCost      float64 `yaml:"in_place_cost"`
	UnmetGoalPenalty int     `yaml:"unmet_goal_penalty"`

	// 0 means unbounded.
	MaxExpansions int `yaml:"max_expansions"`
	TimeoutMs     int `yaml:"timeout_ms"`
}

type Synth struct {
	ProcedureRounds int `yaml:"procedure_rounds"`
	ProcedureMinLen int `yaml:"procedure_min_len"`
	ProcedureMaxLen int `yaml:"procedure_max_len"`
}

func Defaults() Tuning {
	return Tuning{
		Search: Search{
			MoveCost:         1,
			InPlaceCost:      1.1,
			UnmetGoalPenalty: 10,
		},
		Synth: Synth{
			ProcedureRounds: 3,
			ProcedureMinLen: 3,
			ProcedureMaxLen: 10,
		},
		MaxBlocksSlack: 5,
	}
}

// Load reads a YAML file on top of Defaults, so omitted keys keep their defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Search.MoveCost <= 0 || t.Search.InPlaceCost <= 0 {
		return fmt.Errorf("search costs must be positive")
	}
	if t.Search.UnmetGoalPenalty < 0 {
		return fmt.Errorf("unmet_goal_penalty must be >= 0")
	}
	if t.Search.MaxExpansions < 0 || t.Search.TimeoutMs < 0 {
		return fmt.Errorf("search limits must be >= 0")
	}
	if t.Synth.ProcedureRounds < 0 {
		return fmt.Errorf("procedure_rounds must be >= 0")
	}
	if t.Synth.ProcedureMinLen < 1 || t.Synth.ProcedureMaxLen < t.Synth.ProcedureMinLen {
		return fmt.Errorf("bad procedure length window [%d,%d]", t.Synth.ProcedureMinLen, t.Synth.ProcedureMaxLen)
	}
	if t.MaxBlocksSlack < 0 {
		return fmt.Errorf("max_blocks_slack must be >= 0")
	}
	return nil
}

// ResultDigest hashes the settings that shape a solution (costs, goal
// penalty, procedure window). Search limits and slack are left out.
func (t Tuning) ResultDigest() string {
	s := fmt.Sprintf("move=%g in_place=%g penalty=%d rounds=%d window=%d-%d",
		t.Search.MoveCost, t.Search.InPlaceCost, t.Search.UnmetGoalPenalty,
		t.Synth.ProcedureRounds, t.Synth.ProcedureMinLen, t.Synth.ProcedureMaxLen)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Timeout returns the per-solve deadline, or 0 when unbounded.
func (s Search) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}
