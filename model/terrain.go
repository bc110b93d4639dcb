package model

import "math"

// TerrainType classifies a single map tile. Void marks tiles outside the
// authored map so an unpainted tile is never mistaken for ground.
type TerrainType byte

const (
	Land   TerrainType = 0 // passable ground
	Water  TerrainType = 1 // impassable for ground units
	Cliff  TerrainType = 2 // impassable (rock, tree, wall)
	Bridge TerrainType = 3 // land corridor over water (chokepoint)
	Void   TerrainType = 4 // no tile authored
)

func (t TerrainType) String() string {
	switch t {
	case Land:
		return "land"
	case Water:
		return "water"
	case Cliff:
		return "cliff"
	case Bridge:
		return "bridge"
	default:
		return "void"
	}
}

// TerrainGrid is the static tile layer the host authored for the map.
// Tile (MinX, MinY) is stored at index 0; each tile is CellW x CellH world units.
type TerrainGrid struct {
	MinX        int           // tile x of the first column
	MinY        int           // tile y of the first row
	Cols        int           // tiles per row
	Rows        int           // number of rows
	CellW       float64       // world units per tile horizontally
	CellH       float64       // world units per tile vertically
	Grid        []TerrainType // row-major: Grid[(y-MinY)*Cols + (x-MinX)]
	Unbuildable []bool        // optional, same layout as Grid
}

// Contains reports whether the tile lies inside the authored extent.
func (g *TerrainGrid) Contains(t Tile) bool {
	if g == nil {
		return false
	}
	col := t.X - g.MinX
	row := t.Y - g.MinY
	return col >= 0 && col < g.Cols && row >= 0 && row < g.Rows
}

func (g *TerrainGrid) index(t Tile) int {
	return (t.Y-g.MinY)*g.Cols + (t.X - g.MinX)
}

// At returns the terrain type of a tile. Returns Void for tiles outside the
// grid or for a grid whose layer is shorter than Cols*Rows.
func (g *TerrainGrid) At(t Tile) TerrainType {
	if !g.Contains(t) {
		return Void
	}
	idx := g.index(t)
	if idx >= len(g.Grid) {
		return Void
	}
	return g.Grid[idx]
}

// IsUnbuildable reports whether the designer marked the tile as no-build.
func (g *TerrainGrid) IsUnbuildable(t Tile) bool {
	if !g.Contains(t) {
		return false
	}
	idx := g.index(t)
	return idx < len(g.Unbuildable) && g.Unbuildable[idx]
}

// CellSize returns the world size of one tile, defaulting to 1x1.
func (g *TerrainGrid) CellSize() Vec2 {
	if g == nil || g.CellW <= 0 || g.CellH <= 0 {
		return Vec2{X: 1, Y: 1}
	}
	return Vec2{X: g.CellW, Y: g.CellH}
}

// TileAt converts a world position to the tile that contains it.
func (g *TerrainGrid) TileAt(pos Vec2) Tile {
	size := g.CellSize()
	return Tile{
		X: int(math.Floor(pos.X / size.X)),
		Y: int(math.Floor(pos.Y / size.Y)),
	}
}

// Locate is TileAt restricted to the authored extent. Positions that are off
// the map, infinite or NaN report false.
func (g *TerrainGrid) Locate(pos Vec2) (Tile, bool) {
	size := g.CellSize()
	fx, fy := math.Floor(pos.X/size.X), math.Floor(pos.Y/size.Y)
	if math.IsNaN(fx) || math.IsNaN(fy) || math.Abs(fx) > math.MaxInt32 || math.Abs(fy) > math.MaxInt32 {
		return Tile{}, false
	}
	t := Tile{X: int(fx), Y: int(fy)}
	return t, g.Contains(t)
}

// TileCenter returns the world position of the center of a tile.
func (g *TerrainGrid) TileCenter(t Tile) Vec2 {
	size := g.CellSize()
	return Vec2{
		X: float64(t.X)*size.X + size.X/2,
		Y: float64(t.Y)*size.Y + size.Y/2,
	}
}

// Bounds returns the authored extent as a tile rectangle.
func (g *TerrainGrid) Bounds() Rect {
	if g == nil {
		return Rect{}
	}
	return Rect{X: g.MinX, Y: g.MinY, W: g.Cols, H: g.Rows}
}
