package world

import (
	"encoding/json"
	"fmt"
)

// Level is the world description consumed by New. It mirrors the level JSON
// produced by the map generator.
type Level struct {
	ID            string         `json:"id,omitempty"`
	GameConfig    GameConfig     `json:"gameConfig"`
	BlocklyConfig BlocklyConfig  `json:"blocklyConfig"`
	Solution      SolutionConfig `json:"solution"`
}

type GameConfig struct {
	Type          string             `json:"type,omitempty"`
	Blocks        []BlockSpec        `json:"blocks"`
	Obstacles     []ObstacleSpec     `json:"obstacles,omitempty"`
	Players       []PlayerSpec       `json:"players"`
	Collectibles  []CollectibleSpec  `json:"collectibles,omitempty"`
	Interactibles []InteractibleSpec `json:"interactibles,omitempty"`
	Finish        *Vec3i             `json:"finish"`
}

type BlockSpec struct {
	ModelKey string `json:"modelKey"`
	Position Vec3i  `json:"position"`
}

type ObstacleSpec struct {
	Type     string `json:"type,omitempty"`
	ModelKey string `json:"modelKey,omitempty"`
	Position Vec3i  `json:"position"`
}

type PlayerSpec struct {
	ID    string     `json:"id,omitempty"`
	Start *StartSpec `json:"start"`
}

type StartSpec struct {
	X         int `json:"x"`
	Y         int `json:"y"`
	Z         int `json:"z"`
	Direction int `json:"direction"`
}

type CollectibleSpec struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Position Vec3i  `json:"position"`
}

type InteractibleSpec struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Position     *Vec3i `json:"position,omitempty"`
	InitialState string `json:"initialState,omitempty"`
	TargetID     string `json:"targetId,omitempty"`
}

type BlocklyConfig struct {
	Toolbox     Toolbox `json:"toolbox"`
	MaxBlocks   int     `json:"maxBlocks,omitempty"`
	StartBlocks string  `json:"startBlocks,omitempty"`
}

type SolutionConfig struct {
	Type      string         `json:"type,omitempty"`
	ItemGoals map[string]int `json:"itemGoals,omitempty"`
}

func Parse(raw []byte) (Level, error) {
	var lv Level
	if err := json.Unmarshal(raw, &lv); err != nil {
		return lv, fmt.Errorf("level: %w", err)
	}
	return lv, nil
}
