// Package world owns the terrain and occupancy of one game session and keeps
// the navigation grid in step with them.
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nstehr/vimy/vimy-nav/model"
	"github.com/nstehr/vimy/vimy-nav/nav"
	"github.com/nstehr/vimy/vimy-nav/rules"
)

var (
	ErrPlacementBlocked   = errors.New("placement blocked")
	ErrInvalidFootprint   = errors.New("structure footprint must be at least 1x1")
	ErrDuplicateStructure = errors.New("structure already placed")
	ErrUnknownStructure   = errors.New("unknown structure")
)

// World combines static terrain, dynamic occupancy and the walk/place rules
// into the predicate the navigator is built from.
//
// Lock order is World.mu then the navigator's own lock: every call that
// re-queries walkability holds mu so the predicate sees a stable snapshot.
type World struct {
	mu         sync.Mutex
	terrain    *model.TerrainGrid
	rules      *rules.RuleSet
	nav        *nav.Navigator
	structures map[int]model.Structure
	buildings  map[model.Tile]int // tile -> structure id
	units      map[model.Tile]int // tile -> unit count
	tick       int
	feed       *Feed
}

// New builds the navigation grid over the terrain's authored extent.
func New(terrain *model.TerrainGrid, rs *rules.RuleSet) (*World, error) {
	if terrain == nil {
		return nil, errors.New("world requires terrain")
	}
	if rs == nil {
		rs = rules.DefaultRuleSet()
	}
	w := &World{
		terrain:    terrain,
		rules:      rs,
		structures: make(map[int]model.Structure),
		buildings:  make(map[model.Tile]int),
		units:      make(map[model.Tile]int),
		feed:       NewFeed(),
	}
	navigator, err := nav.NewNavigator(terrain.Bounds(), terrain.CellSize(), w.canWalkLocked)
	if err != nil {
		return nil, fmt.Errorf("build navigation grid: %w", err)
	}
	w.nav = navigator
	slog.Info("navigation grid built",
		"minX", terrain.MinX, "minY", terrain.MinY,
		"cols", terrain.Cols, "rows", terrain.Rows,
		"cellW", terrain.CellW, "cellH", terrain.CellH)
	return w, nil
}

// Feed returns the change feed for subscribers.
func (w *World) Feed() *Feed { return w.feed }

func (w *World) Terrain() *model.TerrainGrid { return w.terrain }

func (w *World) Navigator() *nav.Navigator { return w.nav }

func (w *World) envLocked(t model.Tile) rules.TileEnv {
	env := rules.NewTileEnv(w.terrain, t)
	if id, ok := w.buildings[t]; ok {
		env.Building = true
		env.Structure = model.BaseType(w.structures[id].Type)
	}
	env.Units = w.units[t]
	env.Occupied = env.Building || env.Units > 0
	return env
}

// canWalkLocked is the navigator's predicate. Callers must hold mu, which
// holds for construction and every UpdateArea issued from this package.
func (w *World) canWalkLocked(t model.Tile) bool {
	return w.rules.CanWalk(w.envLocked(t))
}

func (w *World) canPlaceLocked(t model.Tile) bool {
	return w.rules.CanPlace(w.envLocked(t))
}

// CanWalkAt evaluates the walk rule against the live occupancy, which may
// be ahead of the grid if an update is pending.
func (w *World) CanWalkAt(t model.Tile) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canWalkLocked(t)
}

func (w *World) CanPlaceAt(t model.Tile) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canPlaceLocked(t)
}

// CanPlaceStructure checks every footprint tile.
func (w *World) CanPlaceStructure(s model.Structure) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkPlacementLocked(s)
}

func (w *World) checkPlacementLocked(s model.Structure) error {
	if s.W <= 0 || s.H <= 0 {
		return fmt.Errorf("structure %d %dx%d: %w", s.ID, s.W, s.H, ErrInvalidFootprint)
	}
	if _, ok := w.structures[s.ID]; ok {
		return fmt.Errorf("structure %d: %w", s.ID, ErrDuplicateStructure)
	}
	// Tiles off the map are Void, which never accepts a structure.
	if !w.terrain.Bounds().ContainsRect(s.Footprint()) {
		return fmt.Errorf("structure %d %dx%d at %s leaves the map: %w", s.ID, s.W, s.H, s.Footprint().Origin(), ErrPlacementBlocked)
	}
	for _, t := range s.Footprint().Tiles() {
		if !w.canPlaceLocked(t) {
			return fmt.Errorf("structure %d at tile %s: %w", s.ID, t, ErrPlacementBlocked)
		}
	}
	return nil
}

// PlaceStructure validates the footprint, occupies it and updates the grid
// under it.
func (w *World) PlaceStructure(s model.Structure) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkPlacementLocked(s); err != nil {
		return err
	}
	w.occupyLocked(s)
	w.updateLocked(s.Footprint(), "structure_placed")
	slog.Debug("structure placed", "id", s.ID, "type", s.Type, "x", s.X, "y", s.Y, "w", s.W, "h", s.H)
	return nil
}

// RemoveStructure frees the footprint and updates the grid under it.
func (w *World) RemoveStructure(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.structures[id]
	if !ok {
		return fmt.Errorf("remove structure %d: %w", id, ErrUnknownStructure)
	}
	w.vacateLocked(s)
	w.updateLocked(s.Footprint(), "structure_removed")
	slog.Debug("structure removed", "id", s.ID, "type", s.Type)
	return nil
}

func (w *World) occupyLocked(s model.Structure) {
	w.structures[s.ID] = s
	for _, t := range s.Footprint().Tiles() {
		w.buildings[t] = s.ID
	}
}

func (w *World) vacateLocked(s model.Structure) {
	delete(w.structures, s.ID)
	for _, t := range s.Footprint().Tiles() {
		if w.buildings[t] == s.ID {
			delete(w.buildings, t)
		}
	}
	// Overlapping footprints from a sync may share tiles; restore them.
	for _, other := range w.structures {
		if other.Footprint().Intersects(s.Footprint()) {
			for _, t := range other.Footprint().Tiles() {
				w.buildings[t] = other.ID
			}
		}
	}
}

// UpdateArea re-queries walkability for a tile rectangle. Hosts call it for
// occupancy changes the sidecar cannot see on its own. The rectangle is
// clipped to the grid.
func (w *World) UpdateArea(area model.Rect) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updateLocked(area, "host_update")
}

func (w *World) updateLocked(area model.Rect, reason string) int {
	area = area.Intersect(w.nav.Bounds())
	if area.Empty() {
		return 0
	}
	changed := w.nav.UpdateArea(area.Origin(), area.W, area.H)
	w.feed.Publish(AreaChange{Origin: area.Origin(), W: area.W, H: area.H, Changed: changed, Reason: reason})
	return changed
}

// Refresh re-queries the whole grid, used after the rules changed.
func (w *World) Refresh() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refreshLocked("refresh")
}

func (w *World) refreshLocked(reason string) int {
	changed := w.nav.Refresh()
	b := w.nav.Bounds()
	w.feed.Publish(AreaChange{Origin: b.Origin(), W: b.W, H: b.H, Changed: changed, Reason: reason})
	return changed
}

// SetRules switches to another rule set and re-queries the whole grid.
func (w *World) SetRules(rs *rules.RuleSet) int {
	if rs == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rules = rs
	return w.refreshLocked("rules_changed")
}

// Sync applies a host snapshot. Structures are diffed against the previous
// snapshot so only footprints that changed are re-queried; units are
// replaced wholesale and the tiles whose counts changed are re-queried as
// one rectangle. Footprints are clipped to the map and off-map units are
// dropped.
func (w *World) Sync(gs model.GameState) SyncResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	var res SyncResult
	if gs.Tick < w.tick {
		slog.Debug("stale game state ignored", "tick", gs.Tick, "last", w.tick)
		res.Stale = true
		return res
	}
	w.tick = gs.Tick

	bounds := w.terrain.Bounds()
	next := make(map[int]model.Structure, len(gs.Structures))
	for _, s := range gs.Structures {
		if s.W <= 0 || s.H <= 0 {
			slog.Warn("structure with empty footprint skipped", "id", s.ID, "type", s.Type)
			continue
		}
		fp := s.Footprint().Intersect(bounds)
		if fp.Empty() {
			slog.Warn("structure off the map skipped", "id", s.ID, "type", s.Type, "x", s.X, "y", s.Y)
			continue
		}
		s.X, s.Y, s.W, s.H = fp.X, fp.Y, fp.W, fp.H
		next[s.ID] = s
	}

	var dirty []model.Rect
	for id, old := range w.structures {
		// A retyped structure is replaced too, since rules can key on its type.
		if s, ok := next[id]; ok && s == old {
			continue
		}
		w.vacateLocked(old)
		dirty = append(dirty, old.Footprint())
		res.Removed++
	}
	for id, s := range next {
		if _, ok := w.structures[id]; ok {
			continue
		}
		w.occupyLocked(s)
		dirty = append(dirty, s.Footprint())
		res.Added++
	}
	// A moved structure counts once as removed and once as added.
	for _, area := range dirty {
		res.Changed += w.updateLocked(area, "game_state")
	}

	units := make(map[model.Tile]int, len(gs.Units))
	for _, u := range gs.Units {
		t, ok := w.terrain.Locate(u.Position())
		if !ok {
			continue
		}
		units[t]++
	}
	var unitArea model.Rect
	for t, n := range w.units {
		if units[t] != n {
			unitArea = unitArea.Union(model.Rect{X: t.X, Y: t.Y, W: 1, H: 1})
		}
	}
	for t, n := range units {
		if w.units[t] != n {
			unitArea = unitArea.Union(model.Rect{X: t.X, Y: t.Y, W: 1, H: 1})
		}
	}
	w.units = units
	res.Changed += w.updateLocked(unitArea, "units_moved")
	return res
}

// SyncResult summarizes what a snapshot changed.
type SyncResult struct {
	Added   int  `json:"added"`
	Removed int  `json:"removed"`
	Changed int  `json:"changed"` // cells whose walkability flipped
	Stale   bool `json:"stale,omitempty"`
}

// Structures returns a copy of the placed structures.
func (w *World) Structures() []model.Structure {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Structure, 0, len(w.structures))
	for _, s := range w.structures {
		out = append(out, s)
	}
	return out
}

func (w *World) FindPath(start, end model.Vec2) nav.Path {
	return w.nav.FindPath(start, end)
}

func (w *World) FindCell(pos model.Vec2) (nav.Cell, bool) {
	return w.nav.FindCell(pos)
}
