// Package nav implements the tile grid and the A* search that runs over it.
package nav

import (
	"errors"
	"fmt"
	"math"

	"github.com/nstehr/vimy/vimy-nav/model"
)

var (
	ErrInvalidSize     = errors.New("grid dimensions must be non-negative and fit in memory")
	ErrInvalidCellSize = errors.New("cell size must be positive")
)

// WalkableFunc reports whether a tile can be walked on. It is queried once per
// tile at build time and again for every tile touched by UpdateArea.
type WalkableFunc func(tile model.Tile) bool

// Cell is one grid square. Identity fields never change after NewGrid;
// only Walkable is mutated.
type Cell struct {
	ID       int        `json:"id"`
	X        int        `json:"x"` // tile coordinates, offset included
	Y        int        `json:"y"`
	Center   model.Vec2 `json:"center"`
	Walkable bool       `json:"walkable"`
}

func (c Cell) Tile() model.Tile { return model.Tile{X: c.X, Y: c.Y} }

// Grid is a dense width x height arena of cells. Cell [0,0] sits at tile
// Offset; a cell's ID is its index in the arena (row-major).
type Grid struct {
	width    int
	height   int
	offset   model.Tile
	cellSize model.Vec2
	cells    []Cell
}

// NewGrid allocates every cell and queries isWalkable for each tile.
func NewGrid(width, height int, offset model.Tile, cellSize model.Vec2, isWalkable WalkableFunc) (*Grid, error) {
	if width < 0 || height < 0 || (height != 0 && width > model.MaxTiles/height) {
		return nil, fmt.Errorf("new grid %dx%d: %w", width, height, ErrInvalidSize)
	}
	if cellSize.X <= 0 || cellSize.Y <= 0 {
		return nil, fmt.Errorf("new grid cell size %v: %w", cellSize, ErrInvalidCellSize)
	}

	g := &Grid{
		width:    width,
		height:   height,
		offset:   offset,
		cellSize: cellSize,
		cells:    make([]Cell, width*height),
	}
	half := model.Vec2{X: cellSize.X / 2, Y: cellSize.Y / 2}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tile := model.Tile{X: x + offset.X, Y: y + offset.Y}
			id := g.index(x, y)
			g.cells[id] = Cell{
				ID: id,
				X:  tile.X,
				Y:  tile.Y,
				Center: model.Vec2{
					X: float64(tile.X)*cellSize.X + half.X,
					Y: float64(tile.Y)*cellSize.Y + half.Y,
				},
				Walkable: isWalkable != nil && isWalkable(tile),
			}
		}
	}
	return g, nil
}

func (g *Grid) Width() int           { return g.width }
func (g *Grid) Height() int          { return g.height }
func (g *Grid) Offset() model.Tile   { return g.offset }
func (g *Grid) CellSize() model.Vec2 { return g.cellSize }
func (g *Grid) Len() int             { return len(g.cells) }

// Bounds returns the grid extent in tile coordinates.
func (g *Grid) Bounds() model.Rect {
	return model.Rect{X: g.offset.X, Y: g.offset.Y, W: g.width, H: g.height}
}

func (g *Grid) index(x, y int) int { return y*g.width + x }

func (g *Grid) inRange(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *Grid) cell(id int) *Cell { return &g.cells[id] }

func (g *Grid) local(t model.Tile) (int, int) {
	return t.X - g.offset.X, t.Y - g.offset.Y
}

// CellAt returns the cell for a tile coordinate, or false if the tile is
// outside the grid.
func (g *Grid) CellAt(t model.Tile) (*Cell, bool) {
	x, y := g.local(t)
	if !g.inRange(x, y) {
		return nil, false
	}
	return g.cell(g.index(x, y)), true
}

// FindCell maps a world position to its cell. Positions outside the grid
// are an expected input (clicks off the map) and report false.
func (g *Grid) FindCell(pos model.Vec2) (*Cell, bool) {
	if g == nil || len(g.cells) == 0 {
		return nil, false
	}
	fx := math.Floor(pos.X / g.cellSize.X)
	fy := math.Floor(pos.Y / g.cellSize.Y)
	// NaN and huge values must not reach the int conversion.
	if math.IsNaN(fx) || math.IsNaN(fy) || math.Abs(fx) > math.MaxInt32 || math.Abs(fy) > math.MaxInt32 {
		return nil, false
	}
	return g.CellAt(model.Tile{X: int(fx), Y: int(fy)})
}

// UpdateArea re-queries isWalkable for every tile of the rectangle that lies
// inside the grid and returns how many cells changed. The rectangle is
// clipped to the grid first, so oversized requests cost no more than the
// grid itself.
func (g *Grid) UpdateArea(origin model.Tile, width, height int, isWalkable WalkableFunc) int {
	area := model.Rect{X: origin.X, Y: origin.Y, W: width, H: height}.Intersect(g.Bounds())
	if area.Empty() {
		return 0
	}
	x0, y0 := g.local(area.Origin())
	changed := 0
	for x := x0; x < x0+area.W; x++ {
		for y := y0; y < y0+area.H; y++ {
			c := g.cell(g.index(x, y))
			walkable := isWalkable != nil && isWalkable(c.Tile())
			if walkable != c.Walkable {
				c.Walkable = walkable
				changed++
			}
		}
	}
	return changed
}

// Neighbors returns the up to eight in-bounds cells around c, x offset
// outer and y offset inner. The order is part of the search's tie-breaking.
func (g *Grid) Neighbors(c *Cell) []*Cell {
	return g.appendNeighbors(make([]*Cell, 0, 8), c)
}

func (g *Grid) appendNeighbors(out []*Cell, c *Cell) []*Cell {
	x, y := g.local(c.Tile())
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if g.inRange(nx, ny) {
				out = append(out, g.cell(g.index(nx, ny)))
			}
		}
	}
	return out
}
