package rules

import (
	"github.com/nstehr/vimy/vimy-nav/model"
)

// TileEnv is what a walk or place condition can see about one tile.
// Field and method names are part of the config surface.
type TileEnv struct {
	X           int    // tile x
	Y           int    // tile y
	Terrain     string // "land", "water", "cliff", "bridge" or "void"
	Building    bool   // a structure covers the tile
	Structure   string // base type of that structure, "" if none
	Occupied    bool   // a structure or a unit is on the tile
	Units       int    // number of units standing on the tile
	Unbuildable bool   // designer no-build marker
}

// NewTileEnv fills the terrain fields of a TileEnv. Occupancy is left for
// the caller.
func NewTileEnv(terrain *model.TerrainGrid, t model.Tile) TileEnv {
	return TileEnv{
		X:           t.X,
		Y:           t.Y,
		Terrain:     terrain.At(t).String(),
		Unbuildable: terrain.IsUnbuildable(t),
	}
}

// IsLand treats bridges as land so ground units can cross them.
func (e TileEnv) IsLand() bool {
	return e.Terrain == model.Land.String() || e.Terrain == model.Bridge.String()
}

func (e TileEnv) IsWater() bool { return e.Terrain == model.Water.String() }

func (e TileEnv) HasTile() bool { return e.Terrain != model.Void.String() }
