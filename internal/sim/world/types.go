package world

import "fmt"

type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) Up(n int) Vec3i { return Vec3i{X: v.X, Y: v.Y + n, Z: v.Z} }

func (v Vec3i) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }

func Manhattan(a, b Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}

// Dir is a facing index; 0=-Z, 1=+X, 2=+Z, 3=-X.
type Dir uint8

var dirVectors = [4]Vec3i{{Z: -1}, {X: 1}, {Z: 1}, {X: -1}}

func (d Dir) Valid() bool { return d < 4 }

func (d Dir) Vector() Vec3i { return dirVectors[d&3] }

func (d Dir) Left() Dir { return (d + 3) & 3 }

func (d Dir) Right() Dir { return (d + 1) & 3 }

// Pose is a position plus facing.
type Pose struct {
	Pos Vec3i
	Dir Dir
}

type TerrainKind uint8

const (
	TerrainAir TerrainKind = iota
	TerrainGround
	TerrainSolid
	TerrainDeadly
	// TerrainOther is an occupied cell that is neither walkable nor solid (decoration).
	TerrainOther
)

func (k TerrainKind) Solid() bool { return k == TerrainSolid || k == TerrainDeadly }

func (k TerrainKind) String() string {
	switch k {
	case TerrainAir:
		return "air"
	case TerrainGround:
		return "ground"
	case TerrainSolid:
		return "solid"
	case TerrainDeadly:
		return "deadly"
	case TerrainOther:
		return "other"
	}
	return fmt.Sprintf("TerrainKind(%d)", uint8(k))
}
