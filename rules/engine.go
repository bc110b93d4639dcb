package rules

import (
	"log/slog"
	"sync"
)

// Default conditions. Ground units walk on land and bridges unless a
// structure stands there; structures go on open, buildable land only.
const (
	DefaultWalkSrc  = `Terrain in ["land", "bridge"] && !Building`
	DefaultPlaceSrc = `Terrain == "land" && !Occupied && !Unbuildable`
)

// RuleSet holds the walk and place rules shared by every session. Swap
// replaces both at once; in-flight evaluations keep the rules they started
// with.
type RuleSet struct {
	mu    sync.RWMutex
	walk  *Rule
	place *Rule
}

// NewRuleSet compiles both conditions. An empty source selects the default.
func NewRuleSet(walkSrc, placeSrc string) (*RuleSet, error) {
	walk, place, err := compilePair(walkSrc, placeSrc)
	if err != nil {
		return nil, err
	}
	return &RuleSet{walk: walk, place: place}, nil
}

// DefaultRuleSet compiles the built-in conditions.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(DefaultWalkSrc, DefaultPlaceSrc)
	if err != nil {
		panic("rules: default conditions do not compile: " + err.Error())
	}
	return rs
}

func compilePair(walkSrc, placeSrc string) (*Rule, *Rule, error) {
	if walkSrc == "" {
		walkSrc = DefaultWalkSrc
	}
	if placeSrc == "" {
		placeSrc = DefaultPlaceSrc
	}
	walk, err := Compile("walk", walkSrc)
	if err != nil {
		return nil, nil, err
	}
	place, err := Compile("place", placeSrc)
	if err != nil {
		return nil, nil, err
	}
	return walk, place, nil
}

func (s *RuleSet) CanWalk(env TileEnv) bool {
	s.mu.RLock()
	walk := s.walk
	s.mu.RUnlock()
	return walk.Eval(env)
}

func (s *RuleSet) CanPlace(env TileEnv) bool {
	s.mu.RLock()
	place := s.place
	s.mu.RUnlock()
	return place.Eval(env)
}

// Swap compiles the new conditions first; if either fails the old rules
// remain active.
func (s *RuleSet) Swap(walkSrc, placeSrc string) error {
	walk, place, err := compilePair(walkSrc, placeSrc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.walk = walk
	s.place = place
	s.mu.Unlock()
	slog.Info("rule set swapped", "walk", walk.ConditionSrc, "place", place.ConditionSrc)
	return nil
}

// Sources returns the active condition sources.
func (s *RuleSet) Sources() (walk, place string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.walk.ConditionSrc, s.place.ConditionSrc
}
