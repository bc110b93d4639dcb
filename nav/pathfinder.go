package nav

import (
	"container/heap"
	"log/slog"

	"github.com/nstehr/vimy/vimy-nav/model"
)

// Step costs are the classic octile approximation scaled to integers
// (14 ≈ 10·√2).
const (
	StraightCost = 10
	DiagonalCost = 14
)

// Distance is the octile distance between two cells. It is both the step
// cost between neighbours and the search heuristic.
func Distance(a, b *Cell) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return DiagonalCost*dy + StraightCost*(dx-dy)
	}
	return DiagonalCost*dx + StraightCost*(dy-dx)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Path is the result of a search. Waypoints starts with the literal start
// position followed by the centers of each cell up to the final one.
// Reached is false when the destination was unreachable and the path ends
// at the closest cell the search could get to.
type Path struct {
	Waypoints []model.Vec2 `json:"waypoints"`
	Reached   bool         `json:"reached"`
	Cost      int          `json:"cost"`
}

// Empty reports whether the path offers no movement at all, which only
// happens when an endpoint lies outside the grid.
func (p Path) Empty() bool { return len(p.Waypoints) == 0 }

// Last returns the final waypoint.
func (p Path) Last() (model.Vec2, bool) {
	if len(p.Waypoints) == 0 {
		return model.Vec2{}, false
	}
	return p.Waypoints[len(p.Waypoints)-1], true
}

// Pathfinder runs A* over a Grid. It keeps no state between calls: all
// scratch data lives in a per-call search, so calls never observe each
// other and may run concurrently as long as the grid is not being mutated.
type Pathfinder struct {
	grid *Grid
}

func NewPathfinder(grid *Grid) *Pathfinder {
	if grid == nil {
		panic("nav: pathfinder requires a grid")
	}
	return &Pathfinder{grid: grid}
}

// FindPath searches from the cell containing start to the cell containing
// end. If either position is outside the grid the path is empty. If end
// cannot be reached the path leads to the cell closest to it instead.
//
// The start cell's own walkability is never checked so an agent standing on
// a freshly blocked tile can still walk out. The end cell's walkability is
// not checked either: an unwalkable destination is never entered through a
// neighbour and therefore yields a partial path.
func (pf *Pathfinder) FindPath(start, end model.Vec2) Path {
	startCell, ok := pf.grid.FindCell(start)
	if !ok {
		slog.Debug("path start outside grid", "x", start.X, "y", start.Y)
		return Path{}
	}
	endCell, ok := pf.grid.FindCell(end)
	if !ok {
		slog.Debug("path end outside grid", "x", end.X, "y", end.Y)
		return Path{}
	}

	s := newSearch()
	s.open.push(s.node(startCell.ID))

	closest := startCell.ID
	closestDist := Distance(startCell, endCell)
	neighbors := make([]*Cell, 0, 8)

	for s.open.Len() > 0 {
		current := heap.Pop(&s.open).(*searchNode)
		if current.id == endCell.ID {
			return s.retrace(pf.grid, current.id, start, true)
		}
		current.state = stateClosed
		currentCell := pf.grid.cell(current.id)

		neighbors = pf.grid.appendNeighbors(neighbors[:0], currentCell)
		for _, nc := range neighbors {
			if !nc.Walkable {
				continue
			}
			n := s.node(nc.ID)
			if n.state == stateClosed {
				continue
			}
			tentative := current.g + Distance(currentCell, nc)
			if n.state == stateOpen && tentative >= n.g {
				continue
			}

			dist := Distance(nc, endCell)
			n.g = tentative
			n.h = dist
			n.f = tentative + dist
			n.parent = current.id

			if dist < closestDist {
				closest = nc.ID
				closestDist = dist
			}

			if n.state == stateOpen {
				heap.Fix(&s.open, n.index)
			} else {
				s.open.push(n)
			}
		}
	}

	return s.retrace(pf.grid, closest, start, false)
}

type nodeState uint8

const (
	stateNew nodeState = iota
	stateOpen
	stateClosed
)

// searchNode is the scratch record for one cell during one search.
type searchNode struct {
	id     int
	g      int
	h      int
	f      int
	parent int
	state  nodeState
	seq    int // insertion order into the open set
	index  int // position in the heap
}

type search struct {
	nodes map[int]*searchNode
	open  openSet
}

func newSearch() *search {
	return &search{nodes: make(map[int]*searchNode, 64)}
}

func (s *search) node(id int) *searchNode {
	n, ok := s.nodes[id]
	if !ok {
		n = &searchNode{id: id, parent: -1, index: -1}
		s.nodes[id] = n
	}
	return n
}

// retrace walks parent links back from id and prepends the literal start
// position.
func (s *search) retrace(g *Grid, id int, start model.Vec2, reached bool) Path {
	cost := s.nodes[id].g
	centers := make([]model.Vec2, 0, 16)
	for cur := id; s.nodes[cur].parent != -1; cur = s.nodes[cur].parent {
		centers = append(centers, g.cell(cur).Center)
	}

	waypoints := make([]model.Vec2, 0, len(centers)+1)
	waypoints = append(waypoints, start)
	for i := len(centers) - 1; i >= 0; i-- {
		waypoints = append(waypoints, centers[i])
	}
	return Path{Waypoints: waypoints, Reached: reached, Cost: cost}
}

// openSet orders by f, then h (prefer cells nearer the goal), then by
// insertion order so equal candidates pop in the order they were found.
type openSet struct {
	items []*searchNode
	seq   int
}

func (o *openSet) push(n *searchNode) {
	n.state = stateOpen
	n.seq = o.seq
	o.seq++
	heap.Push(o, n)
}

func (o openSet) Len() int { return len(o.items) }

func (o openSet) Less(i, j int) bool {
	a, b := o.items[i], o.items[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}

func (o openSet) Swap(i, j int) {
	o.items[i], o.items[j] = o.items[j], o.items[i]
	o.items[i].index = i
	o.items[j].index = j
}

func (o *openSet) Push(x any) {
	n := x.(*searchNode)
	n.index = len(o.items)
	o.items = append(o.items, n)
}

func (o *openSet) Pop() any {
	old := o.items
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.index = -1
	o.items = old[:last]
	return n
}
