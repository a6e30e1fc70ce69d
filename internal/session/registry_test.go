package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRegistry(idle time.Duration) (*Registry, *int) {
	created := 0
	return NewRegistry(idle, func(docID string) *Session {
		created++
		return New(docID, nil, NewSequenceGenerator(docID))
	}), &created
}

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r, created := newTestRegistry(0)

	a := r.Get("doc-a")
	assert.Same(t, a, r.Get("doc-a"))
	assert.Equal(t, 1, *created)
	assert.Equal(t, "doc-a", a.DocID())

	b := r.Get("doc-b")
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_LookupAndDiscard(t *testing.T) {
	r, _ := newTestRegistry(0)

	_, ok := r.Lookup("doc-a")
	assert.False(t, ok)

	a := r.Get("doc-a")
	got, ok := r.Lookup("doc-a")
	assert.True(t, ok)
	assert.Same(t, a, got)

	r.Discard("doc-a")
	_, ok = r.Lookup("doc-a")
	assert.False(t, ok)
	assert.NotSame(t, a, r.Get("doc-a"))
}

func TestRegistry_IdleExpiry(t *testing.T) {
	r, created := newTestRegistry(20 * time.Millisecond)

	a := r.Get("doc-a")
	time.Sleep(50 * time.Millisecond)

	_, ok := r.Lookup("doc-a")
	assert.False(t, ok)
	assert.NotSame(t, a, r.Get("doc-a"))
	assert.Equal(t, 2, *created)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Close(t *testing.T) {
	r, _ := newTestRegistry(0)
	r.Get("doc-a")
	r.Get("doc-b")
	r.Close()
	assert.Equal(t, 0, r.Len())
}
