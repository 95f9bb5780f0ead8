// Package session broadcasts auth-state changes to interested
// components. It replaces ad hoc reads of a global current user with a
// single explicit event stream: subscribers always observe sign-ins and
// sign-outs in the order they happened.
package session

import (
	"sync"

	"github.com/Richmiz/Coinlytics/internal/stream"
)

// Hub fans auth events out to subscribers. A new subscriber immediately
// receives the current state, mirroring how auth listeners fire once on
// registration.
type Hub struct {
	mu      sync.Mutex
	current string
	subs    []chan stream.AuthEvent
	closed  bool
}

func NewHub() *Hub {
	return &Hub{}
}

// SignIn records userID as the active user and notifies subscribers.
// Signing in the already-active user is a no-op.
func (h *Hub) SignIn(userID string) {
	h.emit(userID)
}

// SignOut clears the active user and notifies subscribers.
func (h *Hub) SignOut() {
	h.emit("")
}

// Current returns the active user ID, empty when logged out.
func (h *Hub) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Events returns a channel of auth-state changes. The first event is
// the state at subscription time. The channel is buffered; a subscriber
// that stops draining loses events rather than blocking sign-in.
func (h *Hub) Events() <-chan stream.AuthEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan stream.AuthEvent, 16)
	if h.closed {
		close(ch)
		return ch
	}
	ch <- stream.AuthEvent{UserID: h.current}
	h.subs = append(h.subs, ch)
	return ch
}

// Close terminates all subscriber channels. Further SignIn/SignOut
// calls are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}

func (h *Hub) emit(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.current == userID {
		return
	}
	h.current = userID
	for _, ch := range h.subs {
		select {
		case ch <- stream.AuthEvent{UserID: userID}:
		default:
		}
	}
}
