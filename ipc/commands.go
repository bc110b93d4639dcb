package ipc

import (
	"github.com/nstehr/vimy/vimy-nav/model"
)

// Query and update types. Each request gets exactly one reply, or an
// error message when it cannot be served.
const (
	TypeFindPath        = "find_path"
	TypePath            = "path"
	TypeFindCell        = "find_cell"
	TypeCell            = "cell"
	TypeUpdateArea      = "update_area"
	TypePlaceStructure  = "place_structure"
	TypePlacement       = "placement"
	TypeRemoveStructure = "remove_structure"
)

type FindPathRequest struct {
	RequestID int        `json:"requestId"`
	From      model.Vec2 `json:"from"`
	To        model.Vec2 `json:"to"`
}

// PathReply echoes the request id so the host can match replies to pawns.
// Waypoints is empty when either endpoint lies outside the grid.
type PathReply struct {
	RequestID int          `json:"requestId"`
	Waypoints []model.Vec2 `json:"waypoints"`
	Reached   bool         `json:"reached"`
	Cost      int          `json:"cost"`
}

type FindCellRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CellReply struct {
	Found    bool       `json:"found"`
	ID       int        `json:"id,omitempty"`
	Tile     model.Tile `json:"tile"`
	Center   model.Vec2 `json:"center"`
	Walkable bool       `json:"walkable"`
}

type UpdateAreaRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r UpdateAreaRequest) Rect() model.Rect {
	return model.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// PlaceStructureRequest is the structure itself.
type PlaceStructureRequest = model.Structure

type PlacementReply struct {
	ID     int    `json:"id"`
	Placed bool   `json:"placed"`
	Reason string `json:"reason,omitempty"`
}

type RemoveStructureRequest struct {
	ID int `json:"id"`
}

// UpdateAck reports how many cells flipped.
type UpdateAck struct {
	Status  string `json:"status"`
	Changed int    `json:"changed"`
}
