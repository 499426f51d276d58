package world

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"blockmaze.ai/internal/sim/catalogs"
)

const defaultObstacleModel = "wall.brick01"

const (
	SwitchOn  = "on"
	SwitchOff = "off"
)

type Collectible struct {
	ID      string
	Type    string
	Pos     Vec3i
	Ordinal int
}

type Switch struct {
	ID        string
	Pos       Vec3i
	InitialOn bool
	Ordinal   int
}

type Portal struct {
	ID       string
	Pos      Vec3i
	TargetID string
	Target   Vec3i
}

// World is the read-only puzzle model. It is safe to share between goroutines
// once New returns.
type World struct {
	id      string
	terrain catalogs.TerrainCatalog

	blocks map[Vec3i]string

	collectibles     []Collectible // id order
	collectibleByPos map[Vec3i]int
	collectibleByID  map[string]int

	switches    []Switch // id order
	switchByPos map[Vec3i]int
	switchByID  map[string]int

	portals map[Vec3i]Portal

	start  Pose
	finish Vec3i
	vocab  Vocabulary
	goals  Goals

	digest string
}

// FromJSON parses and models a level in one step.
func FromJSON(raw []byte, terrain catalogs.TerrainCatalog) (*World, error) {
	lv, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return New(lv, terrain)
}

func New(lv Level, terrain catalogs.TerrainCatalog) (*World, error) {
	gc := lv.GameConfig
	if gc.Blocks == nil {
		return nil, missing("gameConfig.blocks")
	}
	if len(gc.Players) == 0 || gc.Players[0].Start == nil {
		return nil, missing("gameConfig.players[0].start")
	}
	if gc.Finish == nil {
		return nil, missing("gameConfig.finish")
	}
	st := gc.Players[0].Start
	if st.Direction < 0 || st.Direction > 3 {
		return nil, malformed("gameConfig.players[0].start.direction", "%d not in [0,3]", st.Direction)
	}

	w := &World{
		id:               lv.ID,
		terrain:          terrain,
		blocks:           make(map[Vec3i]string, len(gc.Blocks)+len(gc.Obstacles)),
		collectibleByPos: map[Vec3i]int{},
		collectibleByID:  map[string]int{},
		switchByPos:      map[Vec3i]int{},
		switchByID:       map[string]int{},
		portals:          map[Vec3i]Portal{},
		start:            Pose{Pos: Vec3i{X: st.X, Y: st.Y, Z: st.Z}, Dir: Dir(st.Direction)},
		finish:           *gc.Finish,
		vocab:            VocabularyOf(lv.BlocklyConfig.Toolbox),
		goals:            goalsOf(lv.Solution),
	}

	for _, b := range gc.Blocks {
		w.blocks[b.Position] = b.ModelKey
	}
	for _, o := range gc.Obstacles {
		key := o.ModelKey
		if !terrain.Solid(key) {
			key = defaultObstacleModel
		}
		w.blocks[o.Position] = key
	}

	if err := w.indexCollectibles(gc.Collectibles); err != nil {
		return nil, err
	}
	if err := w.indexInteractibles(gc.Interactibles); err != nil {
		return nil, err
	}

	b, err := json.Marshal(lv)
	if err != nil {
		return nil, fmt.Errorf("level digest: %w", err)
	}
	sum := sha256.Sum256(append(append(b, '\n'), terrain.Digest...))
	w.digest = hex.EncodeToString(sum[:])
	return w, nil
}

func (w *World) indexCollectibles(specs []CollectibleSpec) error {
	cs := make([]Collectible, 0, len(specs))
	seenPos := map[Vec3i]string{}
	seenID := map[string]bool{}
	for i, c := range specs {
		if c.ID == "" {
			return malformed(fmt.Sprintf("gameConfig.collectibles[%d].id", i), "empty")
		}
		if seenID[c.ID] {
			return malformed("gameConfig.collectibles", "duplicate id %s", c.ID)
		}
		if other, ok := seenPos[c.Position]; ok {
			return malformed("gameConfig.collectibles", "%s and %s share %s", other, c.ID, c.Position)
		}
		seenID[c.ID] = true
		seenPos[c.Position] = c.ID
		cs = append(cs, Collectible{ID: c.ID, Type: c.Type, Pos: c.Position})
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
	for i := range cs {
		cs[i].Ordinal = i
		w.collectibleByPos[cs[i].Pos] = i
		w.collectibleByID[cs[i].ID] = i
	}
	w.collectibles = cs
	return nil
}

func (w *World) indexInteractibles(specs []InteractibleSpec) error {
	byID := make(map[string]InteractibleSpec, len(specs))
	for _, it := range specs {
		if it.ID != "" {
			byID[it.ID] = it
		}
	}

	var sw []Switch
	for i, it := range specs {
		if it.Position == nil {
			continue
		}
		pos := *it.Position
		switch it.Type {
		case "switch":
			if it.ID == "" {
				return malformed(fmt.Sprintf("gameConfig.interactibles[%d].id", i), "empty")
			}
			if _, dup := w.switchByID[it.ID]; dup {
				return malformed("gameConfig.interactibles", "duplicate switch id %s", it.ID)
			}
			if _, dup := w.switchByPos[pos]; dup {
				return malformed("gameConfig.interactibles", "two switches at %s", pos)
			}
			on := false
			switch it.InitialState {
			case SwitchOn:
				on = true
			case SwitchOff, "":
			default:
				return malformed(fmt.Sprintf("gameConfig.interactibles[%d].initialState", i), "bad state %q", it.InitialState)
			}
			w.switchByID[it.ID] = -1
			w.switchByPos[pos] = -1
			sw = append(sw, Switch{ID: it.ID, Pos: pos, InitialOn: on})
		case "portal":
			target, ok := byID[it.TargetID]
			if !ok || target.Position == nil {
				// Unpaired portals stay inert.
				continue
			}
			w.portals[pos] = Portal{ID: it.ID, Pos: pos, TargetID: it.TargetID, Target: *target.Position}
		}
	}

	sort.Slice(sw, func(i, j int) bool { return sw[i].ID < sw[j].ID })
	for i := range sw {
		sw[i].Ordinal = i
		w.switchByPos[sw[i].Pos] = i
		w.switchByID[sw[i].ID] = i
	}
	w.switches = sw
	return nil
}

func (w *World) ID() string     { return w.id }
func (w *World) Digest() string { return w.digest }
func (w *World) Start() Pose    { return w.start }
func (w *World) Finish() Vec3i  { return w.finish }
func (w *World) Goals() Goals   { return w.goals }

// ModelAt returns the model key occupying pos, if any.
func (w *World) ModelAt(pos Vec3i) (string, bool) {
	k, ok := w.blocks[pos]
	return k, ok
}

func (w *World) TerrainAt(pos Vec3i) TerrainKind {
	k, ok := w.blocks[pos]
	if !ok {
		return TerrainAir
	}
	switch {
	case w.terrain.Deadly(k):
		return TerrainDeadly
	case w.terrain.Solid(k):
		return TerrainSolid
	case w.terrain.Walkable(k):
		return TerrainGround
	}
	return TerrainOther
}

func (w *World) CollectibleAt(pos Vec3i) (Collectible, bool) {
	i, ok := w.collectibleByPos[pos]
	if !ok {
		return Collectible{}, false
	}
	return w.collectibles[i], true
}

func (w *World) CollectibleByID(id string) (Collectible, bool) {
	i, ok := w.collectibleByID[id]
	if !ok {
		return Collectible{}, false
	}
	return w.collectibles[i], true
}

// Collectibles returns all collectibles ordered by id. Callers must not modify it.
func (w *World) Collectibles() []Collectible { return w.collectibles }

func (w *World) SwitchAt(pos Vec3i) (Switch, bool) {
	i, ok := w.switchByPos[pos]
	if !ok {
		return Switch{}, false
	}
	return w.switches[i], true
}

func (w *World) SwitchByID(id string) (Switch, bool) {
	i, ok := w.switchByID[id]
	if !ok {
		return Switch{}, false
	}
	return w.switches[i], true
}

// Switches returns all switches ordered by id. Callers must not modify it.
func (w *World) Switches() []Switch { return w.switches }

func (w *World) PortalAt(pos Vec3i) (Portal, bool) {
	p, ok := w.portals[pos]
	return p, ok
}

func (w *World) Vocabulary() Vocabulary { return w.vocab }

func (w *World) IsActionAllowed(blockType string) bool { return w.vocab.Has(blockType) }

func (w *World) LoopsAllowed() bool { return w.vocab.Has(BlockRepeat) }

func (w *World) ProceduresAllowed() bool { return w.vocab.Has(ProcedureMarker) }
