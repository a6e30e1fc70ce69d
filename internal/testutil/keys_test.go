package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeySequence_Next(t *testing.T) {
	s := NewKeySequence("SMITH", "JONES")

	assert.Equal(t, "SMITH", s.Next())
	assert.Equal(t, "JONES", s.Next())
	assert.Equal(t, "ITEM0003", s.Next())
	assert.Equal(t, "ITEM0004", s.Next())
}

func TestKeySequence_Push(t *testing.T) {
	s := NewKeySequence()
	assert.Equal(t, "ITEM0001", s.Next())

	s.Push("LATE")
	assert.Equal(t, "LATE", s.Next())
	assert.Equal(t, "ITEM0003", s.Next())

	s = NewKeySequence("A")
	s.Push("B")
	assert.Equal(t, "A", s.Next())
	assert.Equal(t, "B", s.Next())
}
