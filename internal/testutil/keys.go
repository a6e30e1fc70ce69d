package testutil

import (
	"fmt"
	"sync"
)

// KeySequence hands out item keys. Queued keys come first, in order; with
// none queued it generates ITEM0001, ITEM0002 and so on, numbered by the
// count of keys handed out so far.
type KeySequence struct {
	mu      sync.Mutex
	pending []string
	n       int
}

// NewKeySequence returns a sequence with keys queued.
func NewKeySequence(keys ...string) *KeySequence {
	return &KeySequence{pending: append([]string(nil), keys...)}
}

// Next returns the next key. It matches the refdb key generator signature.
func (s *KeySequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	if len(s.pending) > 0 {
		k := s.pending[0]
		s.pending = s.pending[1:]
		return k
	}
	return fmt.Sprintf("ITEM%04d", s.n)
}

// Push queues keys behind any already queued.
func (s *KeySequence) Push(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, keys...)
}
