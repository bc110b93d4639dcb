package agent

import (
	"errors"
	"net"
	"testing"

	"github.com/nstehr/vimy/vimy-nav/ipc"
	"github.com/nstehr/vimy/vimy-nav/model"
	"github.com/nstehr/vimy/vimy-nav/rules"
)

// stripTerrain is a 5x3 land map with a water column at x=2 crossed by a
// bridge at y=1.
func stripTerrain() *ipc.TerrainData {
	td := &ipc.TerrainData{Cols: 5, Rows: 3, CellW: 1, CellH: 1, Grid: make([]int, 15)}
	for y := 0; y < 3; y++ {
		td.Grid[y*5+2] = int(model.Water)
	}
	td.Grid[1*5+2] = int(model.Bridge)
	return td
}

func envelope(t *testing.T, msgType string, data any) ipc.Envelope {
	t.Helper()
	env, err := ipc.NewEnvelope(msgType, data)
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	return env
}

func newAgent(t *testing.T, reg *Registry) *Agent {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return New(ipc.NewConnection(server, nil), rules.DefaultRuleSet(), reg)
}

func helloAgent(t *testing.T, reg *Registry, player string) *Agent {
	t.Helper()
	a := newAgent(t, reg)
	if _, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{Player: player, Terrain: stripTerrain()})); err != nil {
		t.Fatalf("HandleHello failed: %v", err)
	}
	return a
}

func decode[T any](t *testing.T, env *ipc.Envelope, wantType string) T {
	t.Helper()
	var v T
	if env == nil {
		t.Fatalf("no reply, want %s", wantType)
	}
	if env.Type != wantType {
		t.Fatalf("reply type = %s, want %s", env.Type, wantType)
	}
	if err := env.Decode(&v); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return v
}

func TestRequestsBeforeTerrain(t *testing.T) {
	a := newAgent(t, nil)
	_, err := a.HandleFindPath(envelope(t, ipc.TypeFindPath, ipc.FindPathRequest{}))
	if !errors.Is(err, ErrNoTerrain) {
		t.Errorf("HandleFindPath before hello = %v, want ErrNoTerrain", err)
	}

	// A hello without terrain identifies the player but still has no grid.
	if _, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{Player: "p1"})); err != nil {
		t.Fatalf("HandleHello failed: %v", err)
	}
	_, err = a.HandleUpdateArea(envelope(t, ipc.TypeUpdateArea, ipc.UpdateAreaRequest{W: 1, H: 1}))
	if !errors.Is(err, ErrNoTerrain) {
		t.Errorf("HandleUpdateArea without terrain = %v, want ErrNoTerrain", err)
	}
}

func TestHelloRejectsBadTerrain(t *testing.T) {
	a := newAgent(t, nil)
	bad := &ipc.TerrainData{Cols: 2, Rows: 2, Grid: []int{0}}
	if _, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{Player: "p1", Terrain: bad})); err == nil {
		t.Error("HandleHello with short grid should fail")
	}
	if _, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{})); err == nil {
		t.Error("HandleHello without player should fail")
	}
	huge := &ipc.TerrainData{Cols: 1 << 32, Rows: 1 << 32, Grid: []int{}}
	if _, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{Player: "p1", Terrain: huge})); err == nil {
		t.Error("HandleHello with an overflowing terrain size should fail")
	}
	if a.World() != nil {
		t.Error("rejected hello should not install a world")
	}
}

func TestOversizedRequestsStayBounded(t *testing.T) {
	a := helloAgent(t, nil, "p1")

	resp, err := a.HandleUpdateArea(envelope(t, ipc.TypeUpdateArea, ipc.UpdateAreaRequest{W: 1 << 30, H: 1 << 30}))
	if err != nil {
		t.Fatalf("HandleUpdateArea failed: %v", err)
	}
	if ack := decode[ipc.UpdateAck](t, resp, ipc.TypeAck); ack.Changed != 0 {
		t.Errorf("huge update ack = %+v, want 0 changed", ack)
	}

	resp, err = a.HandlePlaceStructure(envelope(t, ipc.TypePlaceStructure, model.Structure{ID: 1, W: 1 << 31, H: 1 << 31}))
	if err != nil {
		t.Fatalf("HandlePlaceStructure failed: %v", err)
	}
	if pr := decode[ipc.PlacementReply](t, resp, ipc.TypePlacement); pr.Placed {
		t.Errorf("huge placement = %+v, want rejected", pr)
	}

	resp, err = a.HandleGameState(envelope(t, ipc.TypeGameState, model.GameState{
		Tick:  1,
		Units: []model.Unit{{ID: 1, X: 0.5, Y: 0.5}, {ID: 2, X: 1e9, Y: 1e9}},
	}))
	if err != nil {
		t.Fatalf("HandleGameState failed: %v", err)
	}
	decode[ipc.UpdateAck](t, resp, ipc.TypeAck)
}

func TestFindPathAcrossBridge(t *testing.T) {
	a := helloAgent(t, nil, "p1")

	resp, err := a.HandleFindPath(envelope(t, ipc.TypeFindPath, ipc.FindPathRequest{
		RequestID: 42,
		From:      model.Vec2{X: 0.5, Y: 0.5},
		To:        model.Vec2{X: 4.5, Y: 0.5},
	}))
	if err != nil {
		t.Fatalf("HandleFindPath failed: %v", err)
	}
	p := decode[ipc.PathReply](t, resp, ipc.TypePath)
	if p.RequestID != 42 || !p.Reached {
		t.Fatalf("reply = %+v, want reached request 42", p)
	}
	// (0,0) -> (1,0) -> (2,1) -> (3,0) -> (4,0) = 10+14+14+10.
	if p.Cost != 48 {
		t.Errorf("Cost = %d, want 48", p.Cost)
	}
	crossed := false
	for _, wp := range p.Waypoints {
		if wp == (model.Vec2{X: 2.5, Y: 1.5}) {
			crossed = true
		}
	}
	if !crossed {
		t.Errorf("path %v does not use the bridge", p.Waypoints)
	}
}

func TestFindPathOutsideGrid(t *testing.T) {
	a := helloAgent(t, nil, "p1")
	resp, err := a.HandleFindPath(envelope(t, ipc.TypeFindPath, ipc.FindPathRequest{
		From: model.Vec2{X: -3, Y: 0.5},
		To:   model.Vec2{X: 1.5, Y: 0.5},
	}))
	if err != nil {
		t.Fatalf("HandleFindPath failed: %v", err)
	}
	p := decode[ipc.PathReply](t, resp, ipc.TypePath)
	if p.Waypoints == nil || len(p.Waypoints) != 0 || p.Reached {
		t.Errorf("reply = %+v, want empty non-nil waypoints", p)
	}
}

func TestPlaceStructureBlocksBridge(t *testing.T) {
	a := helloAgent(t, nil, "p1")

	// Bridges are walkable but not buildable.
	resp, err := a.HandlePlaceStructure(envelope(t, ipc.TypePlaceStructure, model.Structure{ID: 1, X: 2, Y: 1, W: 1, H: 1}))
	if err != nil {
		t.Fatalf("HandlePlaceStructure failed: %v", err)
	}
	if pr := decode[ipc.PlacementReply](t, resp, ipc.TypePlacement); pr.Placed || pr.Reason == "" {
		t.Errorf("placement on bridge = %+v, want rejected with reason", pr)
	}

	// Block the bridge from the host side via game state instead.
	resp, err = a.HandleGameState(envelope(t, ipc.TypeGameState, model.GameState{
		Tick:       1,
		Structures: []model.Structure{{ID: 9, Type: "barricade", X: 2, Y: 1, W: 1, H: 1}},
	}))
	if err != nil {
		t.Fatalf("HandleGameState failed: %v", err)
	}
	if ack := decode[ipc.UpdateAck](t, resp, ipc.TypeAck); ack.Changed != 1 {
		t.Errorf("game state ack = %+v, want 1 changed", ack)
	}

	resp, _ = a.HandleFindPath(envelope(t, ipc.TypeFindPath, ipc.FindPathRequest{
		From: model.Vec2{X: 0.5, Y: 1.5},
		To:   model.Vec2{X: 4.5, Y: 1.5},
	}))
	if p := decode[ipc.PathReply](t, resp, ipc.TypePath); p.Reached {
		t.Error("path should be partial once the bridge is blocked")
	}

	// Removing an unknown structure is a protocol error.
	if _, err := a.HandleRemoveStructure(envelope(t, ipc.TypeRemoveStructure, ipc.RemoveStructureRequest{ID: 77})); err == nil {
		t.Error("HandleRemoveStructure(77) should fail")
	}
	if _, err := a.HandleRemoveStructure(envelope(t, ipc.TypeRemoveStructure, ipc.RemoveStructureRequest{ID: 9})); err != nil {
		t.Errorf("HandleRemoveStructure(9) failed: %v", err)
	}
}

func TestPlaceAndRemoveStructure(t *testing.T) {
	a := helloAgent(t, nil, "p1")

	resp, err := a.HandlePlaceStructure(envelope(t, ipc.TypePlaceStructure, model.Structure{ID: 3, Type: "powr", X: 0, Y: 0, W: 2, H: 2}))
	if err != nil {
		t.Fatalf("HandlePlaceStructure failed: %v", err)
	}
	if pr := decode[ipc.PlacementReply](t, resp, ipc.TypePlacement); !pr.Placed || pr.ID != 3 {
		t.Errorf("placement = %+v, want placed id 3", pr)
	}

	resp, _ = a.HandleFindCell(envelope(t, ipc.TypeFindCell, ipc.FindCellRequest{X: 1.9, Y: 0.1}))
	cell := decode[ipc.CellReply](t, resp, ipc.TypeCell)
	if !cell.Found || cell.Walkable || cell.Tile != (model.Tile{X: 1, Y: 0}) {
		t.Errorf("cell under structure = %+v, want blocked tile (1,0)", cell)
	}

	if _, err := a.HandleRemoveStructure(envelope(t, ipc.TypeRemoveStructure, ipc.RemoveStructureRequest{ID: 3})); err != nil {
		t.Fatalf("HandleRemoveStructure failed: %v", err)
	}
	resp, _ = a.HandleFindCell(envelope(t, ipc.TypeFindCell, ipc.FindCellRequest{X: 1.9, Y: 0.1}))
	if cell := decode[ipc.CellReply](t, resp, ipc.TypeCell); !cell.Walkable {
		t.Errorf("cell after removal = %+v, want walkable", cell)
	}

	resp, _ = a.HandleFindCell(envelope(t, ipc.TypeFindCell, ipc.FindCellRequest{X: 10, Y: 0}))
	if cell := decode[ipc.CellReply](t, resp, ipc.TypeCell); cell.Found {
		t.Errorf("cell outside grid = %+v, want not found", cell)
	}
}

func TestUpdateAreaAck(t *testing.T) {
	a := helloAgent(t, nil, "p1")
	resp, err := a.HandleUpdateArea(envelope(t, ipc.TypeUpdateArea, ipc.UpdateAreaRequest{X: -2, Y: -2, W: 10, H: 10}))
	if err != nil {
		t.Fatalf("HandleUpdateArea failed: %v", err)
	}
	if ack := decode[ipc.UpdateAck](t, resp, ipc.TypeAck); ack.Status != "ok" || ack.Changed != 0 {
		t.Errorf("ack = %+v, want ok with 0 changed", ack)
	}
}

func TestRegistryTracksSessions(t *testing.T) {
	reg := NewRegistry()
	a := helloAgent(t, reg, "alice")
	b := helloAgent(t, reg, "bob")

	if got := reg.Players(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("Players() = %v, want [alice bob]", got)
	}
	if got, ok := reg.Get("bob"); !ok || got != b {
		t.Error("Get(bob) should return bob's agent")
	}

	// A reconnect under the same name replaces the session; the old one
	// closing must not evict it.
	a2 := helloAgent(t, reg, "alice")
	a.Close()
	if got, ok := reg.Get("alice"); !ok || got != a2 {
		t.Error("stale Close evicted the replacement session")
	}

	a2.Close()
	if _, ok := reg.Get("alice"); ok {
		t.Error("Close should unregister the session")
	}
}

func TestRegistryRefreshAfterSwap(t *testing.T) {
	reg := NewRegistry()
	rs := rules.DefaultRuleSet()
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	a := New(ipc.NewConnection(server, nil), rs, reg)
	if _, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{Player: "p1", Terrain: stripTerrain()})); err != nil {
		t.Fatalf("HandleHello failed: %v", err)
	}

	if err := rs.Swap(`IsLand() || IsWater()`, ""); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if changed := reg.Refresh(); changed != 2 {
		t.Errorf("Refresh changed %d cells, want 2 water tiles", changed)
	}
}

func TestServeOverPipe(t *testing.T) {
	reg := NewRegistry()
	server, client := net.Pipe()
	defer client.Close()
	a := New(ipc.NewConnection(server, nil), rules.DefaultRuleSet(), reg)
	done := make(chan struct{})
	go func() {
		a.Serve()
		close(done)
	}()

	send := func(msgType string, data any) ipc.Envelope {
		if err := ipc.WriteEnvelope(client, envelope(t, msgType, data)); err != nil {
			t.Fatalf("WriteEnvelope failed: %v", err)
		}
		resp, err := ipc.ReadEnvelope(client)
		if err != nil {
			t.Fatalf("ReadEnvelope failed: %v", err)
		}
		return resp
	}

	if resp := send(ipc.TypeFindCell, ipc.FindCellRequest{}); resp.Type != ipc.TypeError {
		t.Errorf("find_cell before hello replied %s, want error", resp.Type)
	}
	if resp := send(ipc.TypeHello, ipc.HelloMessage{Player: "p1", Terrain: stripTerrain()}); resp.Type != ipc.TypeAck {
		t.Fatalf("hello replied %s, want ack", resp.Type)
	}
	if _, ok := reg.Get("p1"); !ok {
		t.Error("hello should register the session")
	}
	if resp := send(ipc.TypeFindCell, ipc.FindCellRequest{X: 0.5, Y: 0.5}); resp.Type != ipc.TypeCell {
		t.Errorf("find_cell replied %s, want cell", resp.Type)
	}

	client.Close()
	<-done
	if _, ok := reg.Get("p1"); ok {
		t.Error("disconnect should unregister the session")
	}
}
