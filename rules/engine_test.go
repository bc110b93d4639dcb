package rules

import (
	"strings"
	"testing"

	"github.com/nstehr/vimy/vimy-nav/model"
)

func TestDefaultRulesCompile(t *testing.T) {
	rs := DefaultRuleSet()
	walk, place := rs.Sources()
	if walk != DefaultWalkSrc {
		t.Errorf("walk source = %q, want %q", walk, DefaultWalkSrc)
	}
	if place != DefaultPlaceSrc {
		t.Errorf("place source = %q, want %q", place, DefaultPlaceSrc)
	}
}

func TestDefaultWalkRule(t *testing.T) {
	rs := DefaultRuleSet()

	tests := []struct {
		name string
		env  TileEnv
		want bool
	}{
		{"land", TileEnv{Terrain: "land"}, true},
		{"bridge", TileEnv{Terrain: "bridge"}, true},
		{"water", TileEnv{Terrain: "water"}, false},
		{"cliff", TileEnv{Terrain: "cliff"}, false},
		{"void", TileEnv{Terrain: "void"}, false},
		{"land under building", TileEnv{Terrain: "land", Building: true, Occupied: true}, false},
		{"land with units", TileEnv{Terrain: "land", Occupied: true, Units: 2}, true},
	}
	for _, tc := range tests {
		if got := rs.CanWalk(tc.env); got != tc.want {
			t.Errorf("CanWalk(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDefaultPlaceRule(t *testing.T) {
	rs := DefaultRuleSet()

	tests := []struct {
		name string
		env  TileEnv
		want bool
	}{
		{"open land", TileEnv{Terrain: "land"}, true},
		{"bridge", TileEnv{Terrain: "bridge"}, false},
		{"unit on tile", TileEnv{Terrain: "land", Occupied: true, Units: 1}, false},
		{"unbuildable", TileEnv{Terrain: "land", Unbuildable: true}, false},
		{"water", TileEnv{Terrain: "water"}, false},
	}
	for _, tc := range tests {
		if got := rs.CanPlace(tc.env); got != tc.want {
			t.Errorf("CanPlace(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewRuleSetEmptySourcesUseDefaults(t *testing.T) {
	rs, err := NewRuleSet("", "")
	if err != nil {
		t.Fatalf("NewRuleSet(\"\", \"\") failed: %v", err)
	}
	walk, place := rs.Sources()
	if walk != DefaultWalkSrc || place != DefaultPlaceSrc {
		t.Errorf("Sources() = %q, %q, want defaults", walk, place)
	}
}

func TestCompileRejectsBadConditions(t *testing.T) {
	tests := []string{
		`Terrain ==`,              // syntax
		`Terrain`,                 // not a bool
		`NoSuchField && Building`, // unknown identifier
	}
	for _, src := range tests {
		if _, err := Compile("walk", src); err == nil {
			t.Errorf("Compile(%q) succeeded, want error", src)
		} else if !strings.Contains(err.Error(), `"walk"`) {
			t.Errorf("Compile(%q) error %q does not name the rule", src, err)
		}
	}
}

func TestSwapKeepsOldRulesOnError(t *testing.T) {
	rs := DefaultRuleSet()
	if err := rs.Swap(`Terrain ==`, ""); err == nil {
		t.Fatal("Swap with invalid walk rule should fail")
	}
	if walk, _ := rs.Sources(); walk != DefaultWalkSrc {
		t.Errorf("walk source after failed swap = %q, want default", walk)
	}

	if err := rs.Swap(`IsLand() || IsWater()`, `HasTile()`); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if !rs.CanWalk(TileEnv{Terrain: "water"}) {
		t.Error("swapped walk rule should allow water")
	}
	if rs.CanWalk(TileEnv{Terrain: "cliff"}) {
		t.Error("swapped walk rule should still block cliffs")
	}
	if !rs.CanPlace(TileEnv{Terrain: "cliff"}) {
		t.Error("swapped place rule should allow any authored tile")
	}
}

func TestRuleCoordinates(t *testing.T) {
	r, err := Compile("walk", `X >= 0 && Y < 10`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !r.Eval(TileEnv{X: 0, Y: 9}) {
		t.Error("Eval(0, 9) should be true")
	}
	if r.Eval(TileEnv{X: -1, Y: 0}) {
		t.Error("Eval(-1, 0) should be false")
	}
}

func TestNewTileEnv(t *testing.T) {
	grid := &model.TerrainGrid{
		Cols: 2, Rows: 2, CellW: 1, CellH: 1,
		Grid:        []model.TerrainType{model.Land, model.Water, model.Cliff, model.Bridge},
		Unbuildable: []bool{false, false, false, true},
	}

	env := NewTileEnv(grid, model.Tile{X: 1, Y: 1})
	if env.Terrain != "bridge" || !env.Unbuildable || !env.IsLand() {
		t.Errorf("NewTileEnv(1,1) = %+v, want unbuildable bridge", env)
	}
	env = NewTileEnv(grid, model.Tile{X: 1, Y: 0})
	if !env.IsWater() || env.IsLand() {
		t.Errorf("NewTileEnv(1,0) = %+v, want water", env)
	}
	env = NewTileEnv(grid, model.Tile{X: 5, Y: 5})
	if env.HasTile() {
		t.Errorf("NewTileEnv outside grid = %+v, want void", env)
	}
	if env := NewTileEnv(nil, model.Tile{}); env.HasTile() {
		t.Error("NewTileEnv with nil terrain should be void")
	}
}
