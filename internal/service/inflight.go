package service

import (
	"sync"

	"github.com/studykit/chemtutor/internal/domain"
)

// Inflight enforces the at-most-one-outstanding-request rule per chat.
// Transcript appends happen only after the gateway returns, so request
// order within a chat is reply order.
type Inflight struct {
	mu   sync.Mutex
	busy map[int64]struct{}
}

func NewInflight() *Inflight {
	return &Inflight{busy: make(map[int64]struct{})}
}

// Begin marks key busy. Returns domain.ErrActiveRequest when a request is
// already outstanding for the key.
func (f *Inflight) Begin(key int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.busy[key]; ok {
		return domain.ErrActiveRequest
	}
	f.busy[key] = struct{}{}
	return nil
}

// End releases key. Safe to call for a key that is not busy.
func (f *Inflight) End(key int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.busy, key)
}
