package nav

import (
	"sync"

	"github.com/nstehr/vimy/vimy-nav/model"
)

// Navigator pairs a Grid with its Pathfinder and the walkability predicate
// the grid was built from. All grid access goes through one RWMutex:
// searches share the read lock, walkability updates take the write lock, so
// an update never interleaves with an in-flight search.
type Navigator struct {
	mu       sync.RWMutex
	grid     *Grid
	finder   *Pathfinder
	walkable WalkableFunc
}

// NewNavigator builds the grid once from isWalkable and keeps the predicate
// for later UpdateArea calls.
func NewNavigator(bounds model.Rect, cellSize model.Vec2, isWalkable WalkableFunc) (*Navigator, error) {
	grid, err := NewGrid(bounds.W, bounds.H, bounds.Origin(), cellSize, isWalkable)
	if err != nil {
		return nil, err
	}
	return &Navigator{
		grid:     grid,
		finder:   NewPathfinder(grid),
		walkable: isWalkable,
	}, nil
}

func (n *Navigator) FindPath(start, end model.Vec2) Path {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.finder.FindPath(start, end)
}

// FindCell returns a copy of the cell under pos so callers can validate a
// destination without holding on to grid internals.
func (n *Navigator) FindCell(pos model.Vec2) (Cell, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.grid.FindCell(pos)
	if !ok {
		return Cell{}, false
	}
	return *c, true
}

func (n *Navigator) CellAt(t model.Tile) (Cell, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.grid.CellAt(t)
	if !ok {
		return Cell{}, false
	}
	return *c, true
}

// UpdateArea re-queries the stored predicate for the rectangle and returns
// the number of cells that changed.
func (n *Navigator) UpdateArea(origin model.Tile, width, height int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.grid.UpdateArea(origin, width, height, n.walkable)
}

// Refresh re-queries every cell in place.
func (n *Navigator) Refresh() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.refreshLocked()
}

// SetWalkable replaces the predicate and refreshes the whole grid with it.
func (n *Navigator) SetWalkable(isWalkable WalkableFunc) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.walkable = isWalkable
	return n.refreshLocked()
}

func (n *Navigator) refreshLocked() int {
	b := n.grid.Bounds()
	return n.grid.UpdateArea(b.Origin(), b.W, b.H, n.walkable)
}

func (n *Navigator) Bounds() model.Rect {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.grid.Bounds()
}

func (n *Navigator) CellSize() model.Vec2 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.grid.CellSize()
}

// Walkability copies the walkable flags row-major, bottom row first.
func (n *Navigator) Walkability() []bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]bool, len(n.grid.cells))
	for i := range n.grid.cells {
		out[i] = n.grid.cells[i].Walkable
	}
	return out
}
