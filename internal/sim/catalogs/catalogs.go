package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	KindGround = "GROUND"
	KindSolid  = "SOLID"
)

type Catalogs struct {
	Terrain TerrainCatalog
	Toolbox ToolboxCatalog
}

// TerrainCatalog classifies model keys. Deadly entries are always solid.
type TerrainCatalog struct {
	Palette []string
	Defs    map[string]TerrainDef
	Digest  string
}

type TerrainDef struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"` // "GROUND","SOLID"
	Deadly bool   `json:"deadly,omitempty"`
}

type ToolboxCatalog struct {
	ByName map[string]json.RawMessage
	Digest string
}

var defaultGrounds = []string{
	"ground.checker", "ground.earth", "ground.earthChecker", "ground.mud",
	"ground.normal", "ground.snow",
	"water.water01",
	"ice.ice01",
}

var defaultSolids = []string{
	"stone.stone01", "stone.stone02", "stone.stone03", "stone.stone04",
	"stone.stone05", "stone.stone06", "stone.stone07",
	"wall.brick01", "wall.brick02", "wall.brick03", "wall.brick04",
	"wall.brick05", "wall.brick06", "wall.stone01",
}

var defaultDeadly = []string{"lava.lava01"}

// Defaults returns the built-in terrain classification and no toolbox presets.
func Defaults() *Catalogs {
	defs := make([]TerrainDef, 0, len(defaultGrounds)+len(defaultSolids)+len(defaultDeadly))
	for _, id := range defaultGrounds {
		defs = append(defs, TerrainDef{ID: id, Kind: KindGround})
	}
	for _, id := range defaultSolids {
		defs = append(defs, TerrainDef{ID: id, Kind: KindSolid})
	}
	for _, id := range defaultDeadly {
		defs = append(defs, TerrainDef{ID: id, Kind: KindSolid, Deadly: true})
	}
	raw, _ := json.Marshal(defs)

	var c Catalogs
	if err := buildTerrain(raw, &c.Terrain); err != nil {
		panic(err)
	}
	c.Toolbox = ToolboxCatalog{ByName: map[string]json.RawMessage{}, Digest: sha256Hex(nil)}
	return &c
}

// Load reads terrain.json and toolbox_presets.json from configDir. A missing
// terrain.json falls back to the built-in classification.
func Load(configDir string) (*Catalogs, error) {
	c := Defaults()

	raw, err := os.ReadFile(filepath.Join(configDir, "terrain.json"))
	switch {
	case err == nil:
		if err := buildTerrain(raw, &c.Terrain); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := loadToolbox(filepath.Join(configDir, "toolbox_presets.json"), &c.Toolbox); err != nil {
		return nil, err
	}
	return c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func buildTerrain(raw []byte, out *TerrainCatalog) error {
	var defs []TerrainDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("terrain.json: %w", err)
	}
	byID := make(map[string]TerrainDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("terrain.json: empty id")
		}
		switch d.Kind {
		case KindGround:
			if d.Deadly {
				return fmt.Errorf("terrain.json: %s: deadly terrain must be %s", d.ID, KindSolid)
			}
		case KindSolid:
		default:
			return fmt.Errorf("terrain.json: %s: bad kind %q", d.ID, d.Kind)
		}
		if _, dup := byID[d.ID]; dup {
			return fmt.Errorf("terrain.json: duplicate id %s", d.ID)
		}
		byID[d.ID] = d
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out.Defs = byID
	out.Palette = ids
	out.Digest = sha256Hex(raw)
	return nil
}

func loadToolbox(path string, out *ToolboxCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var presets map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &presets); err != nil {
		return fmt.Errorf("toolbox_presets.json: %w", err)
	}
	out.ByName = presets
	out.Digest = sha256Hex(raw)
	return nil
}

func (t TerrainCatalog) Walkable(modelKey string) bool {
	d, ok := t.Defs[modelKey]
	return ok && d.Kind == KindGround
}

func (t TerrainCatalog) Solid(modelKey string) bool {
	d, ok := t.Defs[modelKey]
	return ok && d.Kind == KindSolid
}

func (t TerrainCatalog) Deadly(modelKey string) bool {
	d, ok := t.Defs[modelKey]
	return ok && d.Deadly
}

// Preset returns the raw toolbox JSON registered under name.
func (t ToolboxCatalog) Preset(name string) (json.RawMessage, bool) {
	b, ok := t.ByName[name]
	return b, ok
}
