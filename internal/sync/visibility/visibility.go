// Package visibility models the host's foreground/background signal.
// A client regaining visibility is a hint that connectivity may be back,
// so the scheduler uses it as a sync trigger.
package visibility

import (
	"strings"
	"sync"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
)

// State is the host's visibility.
type State string

const (
	Visible State = "visible"
	Hidden  State = "hidden"
)

// ParseState parses a client-reported visibility state.
func ParseState(s string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(s))) {
	case Visible:
		return Visible, nil
	case Hidden:
		return Hidden, nil
	default:
		return "", apperrors.New(apperrors.ErrInvalid, "unknown visibility state: "+s)
	}
}

// Source delivers visibility changes. Subscribe returns a function that
// removes the listener; calling it more than once is harmless.
type Source interface {
	Subscribe(listener func(State)) (unsubscribe func())
}

// Broadcaster is a Source fed by Publish. Listeners are notified on every
// transition to a new state; repeated publishes of the same state are
// dropped.
type Broadcaster struct {
	mu        sync.Mutex
	state     State
	nextID    int
	listeners map[int]func(State)
}

// NewBroadcaster creates a Broadcaster that starts out Visible.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		state:     Visible,
		listeners: make(map[int]func(State)),
	}
}

// Subscribe implements Source.
func (b *Broadcaster) Subscribe(listener func(State)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish records state and notifies listeners if it changed.
func (b *Broadcaster) Publish(state State) {
	b.mu.Lock()
	if state == b.state {
		b.mu.Unlock()
		return
	}
	b.state = state

	listeners := make([]func(State), 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

// State returns the last published state.
func (b *Broadcaster) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Listeners returns the number of active subscriptions.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
