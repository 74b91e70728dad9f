// Package store is the in-process consistency layer between concurrent
// callers and the durable game repository: a process-wide cache of
// session handles with coalesced cold loads and per-game change
// notification.
package store

import (
	"sync"
	"sync/atomic"

	"love-letter-server/internal/model"
)

// Token identifies one subscription on a Handle.
type Token int64

// subscription is one registered listener. The active flag lets a
// listener be detached while a notification pass is in flight without
// receiving further calls.
type subscription struct {
	token  Token
	fn     func(*model.Game)
	active atomic.Bool
}

// Handle holds the current snapshot of one game and fans every new
// snapshot out to its subscribers.
//
// Updates and subscriber registration are serialized per handle (single
// writer at a time); reads never block because a published snapshot is
// immutable and callers only ever receive clones.
type Handle struct {
	// mu serializes Update and Subscribe so no registration or second
	// update can interleave with a read-transform-write-notify sequence.
	mu    sync.Mutex
	value atomic.Pointer[model.Game]

	// lmu guards the listener slice only. Unsubscribe takes just lmu, so
	// it is safe to call from inside a notification callback.
	lmu       sync.Mutex
	listeners []*subscription
	nextToken Token
}

// NewHandle creates a handle seeded with the given snapshot. The handle
// takes ownership of the value; callers must not mutate it afterwards.
func NewHandle(game *model.Game) *Handle {
	h := &Handle{}
	h.value.Store(game)
	return h
}

// Current returns a deep copy of the current snapshot. It never blocks
// on a concurrent update.
func (h *Handle) Current() *model.Game {
	return h.value.Load().Clone()
}

// Update atomically replaces the snapshot by applying transform to a
// copy of the current value, then synchronously notifies every
// subscriber with the new snapshot in registration order. Update does
// not return until every subscriber has been informed.
func (h *Handle) Update(transform func(*model.Game) *model.Game) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := transform(h.value.Load().Clone())
	h.value.Store(next)
	h.notify(next)
}

// Subscribe registers a listener and immediately delivers the current
// snapshot to it, so a subscriber never waits for the next mutation to
// learn the current state. The returned token detaches the listener via
// Unsubscribe.
func (h *Handle) Subscribe(fn func(*model.Game)) Token {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lmu.Lock()
	h.nextToken++
	sub := &subscription{token: h.nextToken, fn: fn}
	sub.active.Store(true)
	h.listeners = append(h.listeners, sub)
	h.lmu.Unlock()

	fn(h.value.Load().Clone())
	return sub.token
}

// Unsubscribe detaches the listener registered under token. It is safe
// to call at any time, including from within a notification callback,
// and the listener receives no notifications after it returns.
func (h *Handle) Unsubscribe(token Token) {
	h.lmu.Lock()
	defer h.lmu.Unlock()

	for i, sub := range h.listeners {
		if sub.token == token {
			sub.active.Store(false)
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

// notify delivers the snapshot to every active listener in registration
// order. Each listener gets its own clone. Called with mu held.
func (h *Handle) notify(game *model.Game) {
	h.lmu.Lock()
	subs := make([]*subscription, len(h.listeners))
	copy(subs, h.listeners)
	h.lmu.Unlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.fn(game.Clone())
		}
	}
}
