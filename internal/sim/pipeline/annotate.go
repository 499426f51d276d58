package pipeline

import (
	"encoding/json"
	"fmt"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/report"
	"blockmaze.ai/internal/sim/world"
)

// UnsolvedMaxBlocks is the block limit written for levels without a solution.
const UnsolvedMaxBlocks = 99

// Annotate writes the solve outcome into a level document. Keys it does not
// own are kept as they are. blocklyConfig.maxBlocks becomes the optimal block
// count plus slack, and solution gains optimalBlocks, rawActions and
// structuredSolution.
func Annotate(raw []byte, sol Solution, slack int) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	blockly, err := object(doc, "blocklyConfig")
	if err != nil {
		return nil, err
	}
	maxBlocks := UnsolvedMaxBlocks
	if sol.Found {
		maxBlocks = sol.BlockCount + slack
	}
	blockly["maxBlocks"] = maxBlocks

	solution, err := object(doc, "solution")
	if err != nil {
		return nil, err
	}
	if t, _ := solution["type"].(string); t == "" {
		solution["type"] = world.GoalReachTarget
	}
	if _, ok := solution["itemGoals"]; !ok {
		solution["itemGoals"] = map[string]int{}
	}
	rawActions := actions.Names(sol.RawActions)
	structured := sol.Structured
	if structured == nil {
		structured = []string{}
	}
	if sol.Found {
		solution["optimalBlocks"] = sol.BlockCount
	} else {
		solution["optimalBlocks"] = 0
	}
	solution["rawActions"] = rawActions
	solution["structuredSolution"] = structured

	if err := put(doc, "blocklyConfig", blockly); err != nil {
		return nil, err
	}
	if err := put(doc, "solution", solution); err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ApplyToolbox replaces blocklyConfig.toolbox with preset, prepending the
// Events category when the preset lacks a maze_start block.
func ApplyToolbox(raw []byte, preset json.RawMessage) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("toolbox: %w", err)
	}
	var tb world.Toolbox
	if err := json.Unmarshal(preset, &tb); err != nil {
		return nil, fmt.Errorf("toolbox: preset: %w", err)
	}
	if !world.VocabularyOf(tb).Has(report.BlockStart) {
		tb = tb.WithEvents()
	}

	blockly, err := object(doc, "blocklyConfig")
	if err != nil {
		return nil, err
	}
	blockly["toolbox"] = tb
	if err := put(doc, "blocklyConfig", blockly); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func object(doc map[string]json.RawMessage, key string) (map[string]any, error) {
	out := map[string]any{}
	raw, ok := doc[key]
	if !ok || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("annotate: %s: %w", key, err)
	}
	return out, nil
}

func put(doc map[string]json.RawMessage, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("annotate: %s: %w", key, err)
	}
	doc[key] = raw
	return nil
}
