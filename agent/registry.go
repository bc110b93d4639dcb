package agent

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry tracks live sessions by player name.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Add registers a session, replacing any previous one for the same player.
func (r *Registry) Add(player string, a *Agent) {
	r.mu.Lock()
	_, replaced := r.agents[player]
	r.agents[player] = a
	r.mu.Unlock()
	if replaced {
		slog.Warn("session replaced", "player", player)
	}
}

// Remove unregisters the player only if a is still the registered session,
// so a stale connection closing cannot evict its replacement.
func (r *Registry) Remove(player string, a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.agents[player] == a {
		delete(r.agents, player)
	}
}

func (r *Registry) Get(player string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[player]
	return a, ok
}

// Players returns the registered player names, sorted.
func (r *Registry) Players() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.agents))
	for p := range r.agents {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Refresh re-queries every session's grid, used after the shared rule set
// was swapped. Returns the total number of cells that changed.
func (r *Registry) Refresh() int {
	r.mu.RLock()
	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	r.mu.RUnlock()

	total := 0
	for _, a := range agents {
		if w := a.World(); w != nil {
			total += w.Refresh()
		}
	}
	return total
}
