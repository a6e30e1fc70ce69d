package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Registry owns the sessions of open documents. A session idle for longer
// than the registry's timeout is dropped and recreated on next use.
//
// Expired sessions are swept on access rather than by a background
// janitor, so a Registry owns no goroutines.
type Registry struct {
	mu      sync.Mutex
	cache   *cache.Cache
	factory func(docID string) *Session
}

// NewRegistry returns a registry creating sessions with factory. An idle
// timeout <= 0 keeps sessions until discarded.
func NewRegistry(idle time.Duration, factory func(docID string) *Session) *Registry {
	if idle <= 0 {
		idle = cache.NoExpiration
	}
	c := cache.New(idle, 0)
	c.OnEvicted(func(docID string, _ interface{}) {
		slog.Info("session closed", "doc_id", docID)
	})
	return &Registry{cache: c, factory: factory}
}

// Get returns the session for docID, creating it on first use, and resets
// its idle timer.
func (r *Registry) Get(docID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.DeleteExpired()
	if v, ok := r.cache.Get(docID); ok {
		s := v.(*Session)
		r.cache.SetDefault(docID, s)
		return s
	}
	s := r.factory(docID)
	r.cache.SetDefault(docID, s)
	slog.Debug("session created", "doc_id", docID)
	return s
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(docID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache.Get(docID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Discard drops the session for docID.
func (r *Registry) Discard(docID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(docID)
}

// Len returns the number of live sessions, expired ones included until the
// next sweep.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.ItemCount()
}

// Close discards every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Flush()
}
