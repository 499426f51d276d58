package world_test

import (
	"errors"
	"testing"

	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/world"
	"blockmaze.ai/internal/sim/worldtest"
)

func TestNew_MissingMandatoryFields(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*world.Level)
		field string
	}{
		{"blocks", func(lv *world.Level) { lv.GameConfig.Blocks = nil }, "gameConfig.blocks"},
		{"players", func(lv *world.Level) { lv.GameConfig.Players = nil }, "gameConfig.players[0].start"},
		{"start", func(lv *world.Level) { lv.GameConfig.Players[0].Start = nil }, "gameConfig.players[0].start"},
		{"finish", func(lv *world.Level) { lv.GameConfig.Finish = nil }, "gameConfig.finish"},
	}
	for _, c := range cases {
		lv := worldtest.Corridor(2).Level()
		c.edit(&lv)
		_, err := world.New(lv, catalogs.Defaults().Terrain)
		var mw *world.MalformedWorldError
		if !errors.As(err, &mw) {
			t.Fatalf("%s: err=%v want MalformedWorldError", c.name, err)
		}
		if mw.Field != c.field {
			t.Fatalf("%s: field=%q want %q", c.name, mw.Field, c.field)
		}
	}
}

func TestNew_RejectsBadDirection(t *testing.T) {
	lv := worldtest.Corridor(1).Start(0, 1, 0, 4).Level()
	if _, err := world.New(lv, catalogs.Defaults().Terrain); err == nil {
		t.Fatalf("expected error for direction 4")
	}
}

func TestTerrainAt_MergesObstacles(t *testing.T) {
	w := worldtest.Corridor(3).
		Obstacle(2, 1, 0).
		Block("lava.lava01", 1, 1, 1).
		Block("decor.flower", 0, 1, 1).
		World(t)

	cases := []struct {
		pos  world.Vec3i
		want world.TerrainKind
	}{
		{world.Vec3i{X: 0, Y: 0, Z: 0}, world.TerrainGround},
		{world.Vec3i{X: 2, Y: 1, Z: 0}, world.TerrainSolid},
		{world.Vec3i{X: 1, Y: 1, Z: 1}, world.TerrainDeadly},
		{world.Vec3i{X: 0, Y: 1, Z: 1}, world.TerrainOther},
		{world.Vec3i{X: 0, Y: 5, Z: 0}, world.TerrainAir},
	}
	for _, c := range cases {
		if got := w.TerrainAt(c.pos); got != c.want {
			t.Fatalf("TerrainAt(%s)=%s want %s", c.pos, got, c.want)
		}
	}
	if !world.TerrainDeadly.Solid() || world.TerrainGround.Solid() {
		t.Fatalf("Solid() classification wrong")
	}
}

func TestCollectibles_IndexesAgree(t *testing.T) {
	w := worldtest.Corridor(3).
		Collectible("c2", "gem", 2, 1, 0).
		Collectible("c1", "crystal", 1, 1, 0).
		World(t)

	cs := w.Collectibles()
	if len(cs) != 2 || cs[0].ID != "c1" || cs[1].ID != "c2" {
		t.Fatalf("collectibles not in id order: %+v", cs)
	}
	for _, c := range cs {
		byPos, ok := w.CollectibleAt(c.Pos)
		if !ok || byPos.ID != c.ID {
			t.Fatalf("CollectibleAt(%s)=%+v", c.Pos, byPos)
		}
		byID, ok := w.CollectibleByID(c.ID)
		if !ok || byID.Pos != c.Pos || byID.Ordinal != c.Ordinal {
			t.Fatalf("CollectibleByID(%s)=%+v", c.ID, byID)
		}
	}
}

func TestNew_RejectsDuplicateCollectibleIDs(t *testing.T) {
	lv := worldtest.Corridor(3).
		Collectible("c1", "gem", 1, 1, 0).
		Collectible("c1", "gem", 2, 1, 0).
		Level()
	if _, err := world.New(lv, catalogs.Defaults().Terrain); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestSwitchesAndPortals(t *testing.T) {
	w := worldtest.Corridor(4).
		Switch("s1", "on", 1, 1, 0).
		Switch("s0", "", 2, 1, 0).
		Portal("pA", "pB", 3, 1, 0).
		Portal("pB", "pA", 0, 1, 2).
		Portal("pLonely", "missing", 4, 1, 0).
		World(t)

	s, ok := w.SwitchAt(world.Vec3i{X: 1, Y: 1, Z: 0})
	if !ok || s.ID != "s1" || !s.InitialOn {
		t.Fatalf("SwitchAt=%+v ok=%v", s, ok)
	}
	if sw := w.Switches(); len(sw) != 2 || sw[0].ID != "s0" || sw[0].InitialOn {
		t.Fatalf("Switches=%+v", sw)
	}
	p, ok := w.PortalAt(world.Vec3i{X: 3, Y: 1, Z: 0})
	if !ok || p.Target != (world.Vec3i{X: 0, Y: 1, Z: 2}) {
		t.Fatalf("PortalAt=%+v ok=%v", p, ok)
	}
	back, ok := w.PortalAt(world.Vec3i{X: 0, Y: 1, Z: 2})
	if !ok || back.Target != p.Pos {
		t.Fatalf("portal pairing not symmetric: %+v", back)
	}
	if _, ok := w.PortalAt(world.Vec3i{X: 4, Y: 1, Z: 0}); ok {
		t.Fatalf("unpaired portal should be inert")
	}
}

func TestVocabulary_NestedToolbox(t *testing.T) {
	raw := []byte(`{
	  "gameConfig": {"blocks": [], "players": [{"start": {"x":0,"y":1,"z":0,"direction":1}}], "finish": {"x":0,"y":1,"z":0}},
	  "blocklyConfig": {"toolbox": {"kind":"categoryToolbox","contents":[
	    {"kind":"category","name":"Move","contents":[{"kind":"block","type":"maze_moveForward"},
	      {"kind":"category","name":"Loops","contents":[{"kind":"block","type":"maze_repeat"}]}]},
	    {"kind":"category","name":"Functions","custom":"PROCEDURE"}
	  ]}}
	}`)
	w, err := world.FromJSON(raw, catalogs.Defaults().Terrain)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !w.IsActionAllowed("maze_moveForward") || !w.LoopsAllowed() || !w.ProceduresAllowed() {
		t.Fatalf("vocabulary=%v", w.Vocabulary().Sorted())
	}
	if w.IsActionAllowed("maze_jump") {
		t.Fatalf("maze_jump should not be allowed")
	}
	if w.Goals().Type != world.GoalReachTarget {
		t.Fatalf("default goal type=%q", w.Goals().Type)
	}
}

func TestGoals_Requirements(t *testing.T) {
	w := worldtest.Corridor(1).Goal("switch", 2).Goal("crystal", 3).Goal("obstacle", 1).World(t)
	g := w.Goals()
	if g.SwitchesRequired() != 2 {
		t.Fatalf("SwitchesRequired=%d", g.SwitchesRequired())
	}
	if g.CollectibleRequired("crystal") != 3 || g.CollectibleRequired("gem") != 0 {
		t.Fatalf("CollectibleRequired wrong: %+v", g)
	}
	if g.CollectibleRequired("obstacle") != 0 {
		t.Fatalf("obstacle is not a collectible type")
	}
}

func TestDigest_StableAndSensitive(t *testing.T) {
	a := worldtest.Corridor(3).World(t)
	b := worldtest.Corridor(3).World(t)
	c := worldtest.Corridor(4).World(t)
	if a.Digest() != b.Digest() {
		t.Fatalf("digest not stable")
	}
	if a.Digest() == c.Digest() {
		t.Fatalf("digest should change with the level")
	}
}

func TestDir_Rotation(t *testing.T) {
	d := world.Dir(0)
	if d.Right() != 1 || d.Left() != 3 || world.Dir(3).Right() != 0 {
		t.Fatalf("rotation wrong")
	}
	if world.Dir(1).Vector() != (world.Vec3i{X: 1}) || world.Dir(0).Vector() != (world.Vec3i{Z: -1}) {
		t.Fatalf("vectors wrong")
	}
}
