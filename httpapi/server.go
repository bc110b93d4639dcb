// Package httpapi serves a read-only debug view of live sessions.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"

	"github.com/nstehr/vimy/vimy-nav/agent"
	"github.com/nstehr/vimy/vimy-nav/model"
	"github.com/nstehr/vimy/vimy-nav/world"
)

type Server struct {
	registry *agent.Registry
	router   *way.Router
	upgrader *websocket.Upgrader
}

func NewServer(registry *agent.Registry) *Server {
	s := &Server{
		registry: registry,
		upgrader: &websocket.Upgrader{},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", "/healthz", s.handleHealth)
	s.router.HandleFunc("GET", "/sessions", s.handleSessions)
	s.router.HandleFunc("GET", "/sessions/:player/grid", s.handleGrid)
	s.router.HandleFunc("GET", "/sessions/:player/cell", s.handleCell)
	s.router.HandleFunc("GET", "/sessions/:player/path", s.handlePath)
	s.router.HandleFunc("GET", "/sessions/:player/watch", s.handleWatch)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionWorld resolves the :player parameter to a world, writing the error
// response itself when it cannot.
func (s *Server) sessionWorld(w http.ResponseWriter, r *http.Request) (*world.World, bool) {
	player := way.Param(r.Context(), "player")
	a, ok := s.registry.Get(player)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown player "+player)
		return nil, false
	}
	wld := a.World()
	if wld == nil {
		writeError(w, http.StatusConflict, "player "+player+" has no terrain yet")
		return nil, false
	}
	return wld, true
}

func queryFloats(r *http.Request, names ...string) ([]float64, bool) {
	out := make([]float64, len(names))
	q := r.URL.Query()
	for i, name := range names {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"players": s.registry.Players()})
}

// GridView renders walkability as text, one string per row, top row first.
type GridView struct {
	Bounds   model.Rect `json:"bounds"`
	CellSize model.Vec2 `json:"cellSize"`
	Rows     []string   `json:"rows"`
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	wld, ok := s.sessionWorld(w, r)
	if !ok {
		return
	}
	navigator := wld.Navigator()
	bounds := navigator.Bounds()
	flags := navigator.Walkability()

	rows := make([]string, 0, bounds.H)
	var b strings.Builder
	for y := bounds.H - 1; y >= 0; y-- {
		b.Reset()
		for x := 0; x < bounds.W; x++ {
			if flags[y*bounds.W+x] {
				b.WriteByte('.')
			} else {
				b.WriteByte('#')
			}
		}
		rows = append(rows, b.String())
	}
	writeJSON(w, http.StatusOK, GridView{Bounds: bounds, CellSize: navigator.CellSize(), Rows: rows})
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	wld, ok := s.sessionWorld(w, r)
	if !ok {
		return
	}
	v, ok := queryFloats(r, "x", "y")
	if !ok {
		writeError(w, http.StatusBadRequest, "x and y must be numbers")
		return
	}
	c, found := wld.FindCell(model.Vec2{X: v[0], Y: v[1]})
	if !found {
		writeError(w, http.StatusNotFound, "position outside grid")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	wld, ok := s.sessionWorld(w, r)
	if !ok {
		return
	}
	v, ok := queryFloats(r, "fromX", "fromY", "toX", "toY")
	if !ok {
		writeError(w, http.StatusBadRequest, "fromX, fromY, toX and toY must be numbers")
		return
	}
	p := wld.FindPath(model.Vec2{X: v[0], Y: v[1]}, model.Vec2{X: v[2], Y: v[3]})
	if p.Waypoints == nil {
		p.Waypoints = []model.Vec2{}
	}
	writeJSON(w, http.StatusOK, p)
}
