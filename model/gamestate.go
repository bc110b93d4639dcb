package model

// GameState is the occupancy snapshot the host pushes every few ticks.
// Only what affects walkability or placement is carried.
type GameState struct {
	Tick       int         `json:"tick"`
	Structures []Structure `json:"structures"`
	Units      []Unit      `json:"units"`
}

// Structure is a building footprint. X, Y is the bottom-left tile.
type Structure struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

func (s Structure) TypeName() string { return s.Type }

// Footprint returns the tiles covered by the structure.
func (s Structure) Footprint() Rect {
	return Rect{X: s.X, Y: s.Y, W: s.W, H: s.H}
}

// Unit is a mobile actor. Units never block walking, only placement.
type Unit struct {
	ID   int     `json:"id"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (u Unit) TypeName() string { return u.Type }

func (u Unit) Position() Vec2 { return Vec2{X: u.X, Y: u.Y} }
