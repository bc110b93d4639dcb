package world

import (
	"sync"

	"github.com/nstehr/vimy/vimy-nav/model"
)

// AreaChange reports that walkability was re-queried over a tile rectangle.
type AreaChange struct {
	Origin  model.Tile `json:"origin"`
	W       int        `json:"w"`
	H       int        `json:"h"`
	Changed int        `json:"changed"` // cells whose flag flipped
	Reason  string     `json:"reason"`
}

// Area returns the rectangle the change covers.
func (c AreaChange) Area() model.Rect {
	return model.Rect{X: c.Origin.X, Y: c.Origin.Y, W: c.W, H: c.H}
}

// feedBuffer is per subscriber. A subscriber that falls behind loses events;
// it can always re-read the grid.
const feedBuffer = 64

// Feed fans area changes out to subscribers without ever blocking the
// publisher.
type Feed struct {
	mu     sync.Mutex
	subs   map[chan AreaChange]struct{}
	closed bool
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan AreaChange]struct{})}
}

// Subscribe returns a channel of future changes and a function that
// unsubscribes and closes it.
func (f *Feed) Subscribe() (<-chan AreaChange, func()) {
	ch := make(chan AreaChange, feedBuffer)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
			f.mu.Unlock()
		})
	}
}

func (f *Feed) Publish(c AreaChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close ends every subscription. Later subscribers get a closed channel.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
