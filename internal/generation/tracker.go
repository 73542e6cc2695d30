// Package generation tells a finishing request whether a newer one has
// started since, so stale results can be dropped.
package generation

import (
	"context"
	"sync"
)

// Tracker hands out increasing tokens per key. Starting a new generation
// cancels the context of the previous one.
type Tracker struct {
	mu      sync.Mutex
	next    uint64
	current map[string]uint64
	cancels map[string]context.CancelFunc
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		current: make(map[string]uint64),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Token identifies one generation of a key.
type Token struct {
	key string
	gen uint64
}

// Begin starts a new generation for key, cancelling whatever was in flight.
// The returned context is done when a later Begin for the same key happens or
// when parent is done. Call Done when the work finishes.
func (t *Tracker) Begin(parent context.Context, key string) (context.Context, Token) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.cancels[key]; ok {
		prev()
	}
	t.next++
	t.current[key] = t.next
	t.cancels[key] = cancel
	return ctx, Token{key: key, gen: t.next}
}

// Current reports whether tok is still the latest generation for its key.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current[tok.key] == tok.gen
}

// Commit runs fn while holding the tracker lock if tok is still current, so
// no newer generation can start between the check and the write. It reports
// whether fn ran.
func (t *Tracker) Commit(tok Token, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current[tok.key] != tok.gen {
		return false
	}
	fn()
	return true
}

// Done releases the resources of tok. Bookkeeping for key is dropped once the
// latest generation finishes.
func (t *Tracker) Done(tok Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current[tok.key] != tok.gen {
		return
	}
	if cancel, ok := t.cancels[tok.key]; ok {
		cancel()
	}
	delete(t.cancels, tok.key)
	delete(t.current, tok.key)
}
