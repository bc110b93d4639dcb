package model

import (
	"fmt"
	"math"
)

// Vec2 is a position in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Tile is an integer tile coordinate in the host's tilemap space.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (t Tile) String() string { return fmt.Sprintf("(%d,%d)", t.X, t.Y) }

// Rect is a tile-aligned rectangle anchored at its bottom-left tile.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r Rect) Origin() Tile { return Tile{X: r.X, Y: r.Y} }

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// end returns start+size, saturating at math.MaxInt.
func end(start, size int) int {
	if size > 0 && start > math.MaxInt-size {
		return math.MaxInt
	}
	return start + size
}

// Contains reports whether the tile lies inside the rectangle.
func (r Rect) Contains(t Tile) bool {
	return t.X >= r.X && t.X < end(r.X, r.W) && t.Y >= r.Y && t.Y < end(r.Y, r.H)
}

// ContainsRect reports whether o is non-empty and lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return o.X >= r.X && end(o.X, o.W) <= end(r.X, r.W) &&
		o.Y >= r.Y && end(o.Y, o.H) <= end(r.Y, r.H)
}

// Area returns W*H, or false if the rectangle is empty or the product
// overflows.
func (r Rect) Area() (int, bool) {
	if r.Empty() || r.W > math.MaxInt/r.H {
		return 0, false
	}
	return r.W * r.H, true
}

// MaxTiles caps how many tiles Tiles will enumerate.
const MaxTiles = 1 << 24

// Tiles enumerates every tile in the rectangle, x outer, y inner. It returns
// nil for an empty rectangle or one with more than MaxTiles tiles.
func (r Rect) Tiles() []Tile {
	n, ok := r.Area()
	if !ok || n > MaxTiles || end(r.X, r.W)-r.X != r.W || end(r.Y, r.H)-r.Y != r.H {
		return nil
	}
	out := make([]Tile, 0, n)
	for x := r.X; x < r.X+r.W; x++ {
		for y := r.Y; y < r.Y+r.H; y++ {
			out = append(out, Tile{X: x, Y: y})
		}
	}
	return out
}

// Intersect returns the tiles r and o share, or the zero Rect if they are
// disjoint.
func (r Rect) Intersect(o Rect) Rect {
	if !r.Intersects(o) {
		return Rect{}
	}
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(end(r.X, r.W), end(o.X, o.W)), min(end(r.Y, r.H), end(o.Y, o.H))
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Intersects reports whether the two rectangles share at least one tile.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < end(o.X, o.W) && o.X < end(r.X, r.W) && r.Y < end(o.Y, o.H) && o.Y < end(r.Y, r.H)
}

// Union returns the smallest rectangle covering both. An empty operand is
// ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(end(r.X, r.W), end(o.X, o.W)), max(end(r.Y, r.H), end(o.Y, o.H))
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
