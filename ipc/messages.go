package ipc

import (
	"fmt"

	"github.com/nstehr/vimy/vimy-nav/model"
)

// These constants must stay in sync with the host's message type enum.
const (
	TypeHello     = "hello"
	TypeAck       = "ack"
	TypeGameState = "game_state"
	TypeError     = "error"
)

type HelloMessage struct {
	Player  string       `json:"player"`
	Terrain *TerrainData `json:"terrain,omitempty"`
}

// TerrainData carries the authored tile layer. Grid holds model.TerrainType
// values row-major starting at (MinX, MinY).
type TerrainData struct {
	MinX        int     `json:"minX"`
	MinY        int     `json:"minY"`
	Cols        int     `json:"cols"`
	Rows        int     `json:"rows"`
	CellW       float64 `json:"cellW"`
	CellH       float64 `json:"cellH"`
	Grid        []int   `json:"grid"`
	Unbuildable []bool  `json:"unbuildable,omitempty"`
}

// Model validates the layer sizes and converts to the terrain model.
func (t TerrainData) Model() (*model.TerrainGrid, error) {
	if t.Cols < 0 || t.Rows < 0 {
		return nil, fmt.Errorf("terrain size %dx%d is negative", t.Cols, t.Rows)
	}
	if t.Rows != 0 && t.Cols > model.MaxTiles/t.Rows {
		return nil, fmt.Errorf("terrain size %dx%d exceeds %d tiles", t.Cols, t.Rows, model.MaxTiles)
	}
	if len(t.Grid) != t.Cols*t.Rows {
		return nil, fmt.Errorf("terrain grid has %d tiles, want %d", len(t.Grid), t.Cols*t.Rows)
	}
	if len(t.Unbuildable) != 0 && len(t.Unbuildable) != len(t.Grid) {
		return nil, fmt.Errorf("unbuildable layer has %d tiles, want %d", len(t.Unbuildable), len(t.Grid))
	}
	grid := make([]model.TerrainType, len(t.Grid))
	for i, v := range t.Grid {
		if v < 0 || v > int(model.Void) {
			v = int(model.Void)
		}
		grid[i] = model.TerrainType(v)
	}
	return &model.TerrainGrid{
		MinX:        t.MinX,
		MinY:        t.MinY,
		Cols:        t.Cols,
		Rows:        t.Rows,
		CellW:       t.CellW,
		CellH:       t.CellH,
		Grid:        grid,
		Unbuildable: t.Unbuildable,
	}, nil
}

type AckMessage struct {
	Status string `json:"status"`
}

// ErrorMessage reports a request the sidecar could not serve. The
// connection stays open.
type ErrorMessage struct {
	Type    string `json:"type"` // type of the request that failed
	Message string `json:"message"`
}
