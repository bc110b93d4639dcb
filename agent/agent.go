package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nstehr/vimy/vimy-nav/ipc"
	"github.com/nstehr/vimy/vimy-nav/model"
	"github.com/nstehr/vimy/vimy-nav/rules"
	"github.com/nstehr/vimy/vimy-nav/world"
)

// ErrNoTerrain is returned for requests that arrive before a hello carrying
// terrain.
var ErrNoTerrain = errors.New("no terrain: send hello with terrain first")

// Agent serves navigation requests for a single player session.
type Agent struct {
	Conn     *ipc.Connection
	Rules    *rules.RuleSet
	registry *Registry

	mu     sync.RWMutex
	player string
	world  *world.World
}

func New(conn *ipc.Connection, ruleSet *rules.RuleSet, registry *Registry) *Agent {
	return &Agent{Conn: conn, Rules: ruleSet, registry: registry}
}

// Register installs the agent's handlers on its connection.
func (a *Agent) Register() {
	a.Conn.RegisterHandler(ipc.TypeHello, a.HandleHello)
	a.Conn.RegisterHandler(ipc.TypeGameState, a.HandleGameState)
	a.Conn.RegisterHandler(ipc.TypeFindPath, a.HandleFindPath)
	a.Conn.RegisterHandler(ipc.TypeFindCell, a.HandleFindCell)
	a.Conn.RegisterHandler(ipc.TypeUpdateArea, a.HandleUpdateArea)
	a.Conn.RegisterHandler(ipc.TypePlaceStructure, a.HandlePlaceStructure)
	a.Conn.RegisterHandler(ipc.TypeRemoveStructure, a.HandleRemoveStructure)
}

// Serve runs the connection's read loop and leaves the registry when the
// host disconnects.
func (a *Agent) Serve() {
	a.Register()
	a.Conn.ReadLoop()
	a.Close()
}

// Close drops the session from the registry and ends its change feed.
func (a *Agent) Close() {
	a.mu.Lock()
	player, w := a.player, a.world
	a.mu.Unlock()
	if a.registry != nil && player != "" {
		a.registry.Remove(player, a)
	}
	if w != nil {
		w.Feed().Close()
	}
	slog.Info("session ended", "player", player)
}

func (a *Agent) Player() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.player
}

// World returns the session's world, or nil before terrain arrived.
func (a *Agent) World() *world.World {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.world
}

func (a *Agent) requireWorld() (*world.World, error) {
	if w := a.World(); w != nil {
		return w, nil
	}
	return nil, ErrNoTerrain
}

func reply(msgType string, data any) (*ipc.Envelope, error) {
	env, err := ipc.NewEnvelope(msgType, data)
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func ack() (*ipc.Envelope, error) {
	return reply(ipc.TypeAck, ipc.AckMessage{Status: "ok"})
}

// HandleHello identifies the player and builds the navigation grid from the
// terrain it carries. A repeated hello rebuilds the world from scratch.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}
	if hello.Player == "" {
		return nil, errors.New("hello without player name")
	}

	var w *world.World
	if hello.Terrain != nil {
		terrain, err := hello.Terrain.Model()
		if err != nil {
			return nil, fmt.Errorf("load terrain: %w", err)
		}
		w, err = world.New(terrain, a.Rules)
		if err != nil {
			return nil, err
		}
	}

	a.mu.Lock()
	prevPlayer, prevWorld := a.player, a.world
	a.player = hello.Player
	a.Conn.Player = hello.Player
	a.world = w
	a.mu.Unlock()

	if prevWorld != nil {
		prevWorld.Feed().Close()
	}
	if a.registry != nil {
		if prevPlayer != "" && prevPlayer != hello.Player {
			a.registry.Remove(prevPlayer, a)
		}
		a.registry.Add(hello.Player, a)
	}
	slog.Info("player identified", "player", hello.Player, "terrain", hello.Terrain != nil)
	return ack()
}

func (a *Agent) HandleGameState(env ipc.Envelope) (*ipc.Envelope, error) {
	var gs model.GameState
	if err := env.Decode(&gs); err != nil {
		return nil, err
	}
	w, err := a.requireWorld()
	if err != nil {
		return nil, err
	}

	res := w.Sync(gs)
	slog.Debug("game state received",
		"player", a.Player(),
		"tick", gs.Tick,
		"structures", model.CountByType(gs.Structures),
		"units", model.CountByType(gs.Units),
		"added", res.Added,
		"removed", res.Removed,
		"changed", res.Changed,
	)
	return reply(ipc.TypeAck, ipc.UpdateAck{Status: "ok", Changed: res.Changed})
}

func (a *Agent) HandleFindPath(env ipc.Envelope) (*ipc.Envelope, error) {
	var req ipc.FindPathRequest
	if err := env.Decode(&req); err != nil {
		return nil, err
	}
	w, err := a.requireWorld()
	if err != nil {
		return nil, err
	}

	p := w.FindPath(req.From, req.To)
	if !p.Reached {
		slog.Debug("partial path", "player", a.Player(), "request", req.RequestID,
			"from", req.From, "to", req.To, "waypoints", len(p.Waypoints))
	}
	waypoints := p.Waypoints
	if waypoints == nil {
		waypoints = []model.Vec2{}
	}
	return reply(ipc.TypePath, ipc.PathReply{
		RequestID: req.RequestID,
		Waypoints: waypoints,
		Reached:   p.Reached,
		Cost:      p.Cost,
	})
}

func (a *Agent) HandleFindCell(env ipc.Envelope) (*ipc.Envelope, error) {
	var req ipc.FindCellRequest
	if err := env.Decode(&req); err != nil {
		return nil, err
	}
	w, err := a.requireWorld()
	if err != nil {
		return nil, err
	}

	c, ok := w.FindCell(model.Vec2{X: req.X, Y: req.Y})
	if !ok {
		return reply(ipc.TypeCell, ipc.CellReply{})
	}
	return reply(ipc.TypeCell, ipc.CellReply{
		Found:    true,
		ID:       c.ID,
		Tile:     c.Tile(),
		Center:   c.Center,
		Walkable: c.Walkable,
	})
}

func (a *Agent) HandleUpdateArea(env ipc.Envelope) (*ipc.Envelope, error) {
	var req ipc.UpdateAreaRequest
	if err := env.Decode(&req); err != nil {
		return nil, err
	}
	w, err := a.requireWorld()
	if err != nil {
		return nil, err
	}
	changed := w.UpdateArea(req.Rect())
	return reply(ipc.TypeAck, ipc.UpdateAck{Status: "ok", Changed: changed})
}

// HandlePlaceStructure answers with a placement reply either way; a
// rejected placement is a normal outcome, not a protocol error.
func (a *Agent) HandlePlaceStructure(env ipc.Envelope) (*ipc.Envelope, error) {
	var s ipc.PlaceStructureRequest
	if err := env.Decode(&s); err != nil {
		return nil, err
	}
	w, err := a.requireWorld()
	if err != nil {
		return nil, err
	}

	if err := w.PlaceStructure(s); err != nil {
		slog.Info("placement rejected", "player", a.Player(), "id", s.ID, "type", s.Type, "error", err)
		return reply(ipc.TypePlacement, ipc.PlacementReply{ID: s.ID, Reason: err.Error()})
	}
	return reply(ipc.TypePlacement, ipc.PlacementReply{ID: s.ID, Placed: true})
}

func (a *Agent) HandleRemoveStructure(env ipc.Envelope) (*ipc.Envelope, error) {
	var req ipc.RemoveStructureRequest
	if err := env.Decode(&req); err != nil {
		return nil, err
	}
	w, err := a.requireWorld()
	if err != nil {
		return nil, err
	}
	if err := w.RemoveStructure(req.ID); err != nil {
		return nil, err
	}
	return ack()
}
