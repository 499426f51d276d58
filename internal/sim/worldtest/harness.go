package worldtest

import (
	"encoding/json"
	"testing"

	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/world"
)

// Builder assembles level descriptions for tests. Ground is laid at y=0 and
// the player walks at y=1.
type Builder struct {
	lv world.Level
}

func NewBuilder() *Builder {
	b := &Builder{}
	b.lv.GameConfig.Blocks = []world.BlockSpec{}
	b.lv.GameConfig.Players = []world.PlayerSpec{{ID: "player1"}}
	return b
}

func (b *Builder) ID(id string) *Builder {
	b.lv.ID = id
	return b
}

func (b *Builder) Block(modelKey string, x, y, z int) *Builder {
	b.lv.GameConfig.Blocks = append(b.lv.GameConfig.Blocks, world.BlockSpec{
		ModelKey: modelKey,
		Position: world.Vec3i{X: x, Y: y, Z: z},
	})
	return b
}

func (b *Builder) Ground(x, z int) *Builder { return b.Block("ground.normal", x, 0, z) }

// GroundRect lays ground on every cell of [x0,x1]x[z0,z1].
func (b *Builder) GroundRect(x0, z0, x1, z1 int) *Builder {
	for x := x0; x <= x1; x++ {
		for z := z0; z <= z1; z++ {
			b.Ground(x, z)
		}
	}
	return b
}

func (b *Builder) Obstacle(x, y, z int) *Builder {
	b.lv.GameConfig.Obstacles = append(b.lv.GameConfig.Obstacles, world.ObstacleSpec{
		Type:     "wall",
		Position: world.Vec3i{X: x, Y: y, Z: z},
	})
	return b
}

func (b *Builder) Start(x, y, z, dir int) *Builder {
	b.lv.GameConfig.Players[0].Start = &world.StartSpec{X: x, Y: y, Z: z, Direction: dir}
	return b
}

func (b *Builder) Finish(x, y, z int) *Builder {
	b.lv.GameConfig.Finish = &world.Vec3i{X: x, Y: y, Z: z}
	return b
}

func (b *Builder) Collectible(id, itemType string, x, y, z int) *Builder {
	b.lv.GameConfig.Collectibles = append(b.lv.GameConfig.Collectibles, world.CollectibleSpec{
		ID:       id,
		Type:     itemType,
		Position: world.Vec3i{X: x, Y: y, Z: z},
	})
	return b
}

func (b *Builder) Switch(id, state string, x, y, z int) *Builder {
	p := world.Vec3i{X: x, Y: y, Z: z}
	b.lv.GameConfig.Interactibles = append(b.lv.GameConfig.Interactibles, world.InteractibleSpec{
		ID:           id,
		Type:         "switch",
		Position:     &p,
		InitialState: state,
	})
	return b
}

func (b *Builder) Portal(id, targetID string, x, y, z int) *Builder {
	p := world.Vec3i{X: x, Y: y, Z: z}
	b.lv.GameConfig.Interactibles = append(b.lv.GameConfig.Interactibles, world.InteractibleSpec{
		ID:       id,
		Type:     "portal",
		Position: &p,
		TargetID: targetID,
	})
	return b
}

func (b *Builder) Goal(key string, count int) *Builder {
	if b.lv.Solution.ItemGoals == nil {
		b.lv.Solution.ItemGoals = map[string]int{}
	}
	b.lv.Solution.ItemGoals[key] = count
	return b
}

// Toolbox adds a flat category holding the given block types.
func (b *Builder) Toolbox(blockTypes ...string) *Builder {
	cat := world.ToolboxItem{Kind: "category", Name: "Blocks"}
	for _, t := range blockTypes {
		cat.Contents = append(cat.Contents, world.ToolboxItem{Kind: "block", Type: t})
	}
	b.lv.BlocklyConfig.Toolbox.Kind = "categoryToolbox"
	b.lv.BlocklyConfig.Toolbox.Contents = append(b.lv.BlocklyConfig.Toolbox.Contents, cat)
	return b
}

// Procedures adds the custom PROCEDURE category.
func (b *Builder) Procedures() *Builder {
	b.lv.BlocklyConfig.Toolbox.Kind = "categoryToolbox"
	b.lv.BlocklyConfig.Toolbox.Contents = append(b.lv.BlocklyConfig.Toolbox.Contents,
		world.ToolboxItem{Kind: "category", Name: "Functions", Custom: "PROCEDURE"})
	return b
}

func (b *Builder) Level() world.Level { return b.lv }

func (b *Builder) JSON(t testing.TB) []byte {
	t.Helper()
	raw, err := json.Marshal(b.lv)
	if err != nil {
		t.Fatalf("marshal level: %v", err)
	}
	return raw
}

func (b *Builder) World(t testing.TB) *world.World {
	t.Helper()
	w, err := world.New(b.lv, catalogs.Defaults().Terrain)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

// Corridor is a straight run along +X: ground x=0..n at z=0, start at x=0
// facing +X, finish at x=n.
func Corridor(n int) *Builder {
	b := NewBuilder()
	for x := 0; x <= n; x++ {
		b.Ground(x, 0)
	}
	return b.Start(0, 1, 0, 1).Finish(n, 1, 0)
}
