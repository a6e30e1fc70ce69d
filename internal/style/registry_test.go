package style

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/store"
)

const birdsSource = `
id:    "http://www.example.com/csl/waterbirds"
title: "Waterbirds"
bibliography: {}
`

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "styles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegistry_GetMissing(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.Get("http://www.example.com/csl/waterbirds")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_AddPersistsThroughBackend(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	r, err := NewRegistry()
	require.NoError(t, err)
	require.NoError(t, r.Attach(ctx, st))

	s, err := Compile("birds.cue", birdsSource)
	require.NoError(t, err)
	require.NoError(t, r.Add(ctx, s, "http://origin"))

	// A fresh registry sees the installed style after attaching.
	r2, err := NewRegistry()
	require.NoError(t, err)
	_, err = r2.Get(s.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r2.Attach(ctx, st))
	got, err := r2.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Waterbirds", got.Title)
}

func TestRegistry_ListSorted(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	list := r.List()
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "birds.cue"), []byte(birdsSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r, err := NewRegistry()
	require.NoError(t, err)
	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s, err := r.Get("http://www.example.com/csl/waterbirds")
	require.NoError(t, err)
	assert.Equal(t, "Waterbirds", s.Title)
}

func TestRegistry_LoadDirInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("id: 1\n"), 0o644))

	r, err := NewRegistry()
	require.NoError(t, err)
	_, err = r.LoadDir(dir)
	assert.Error(t, err)
}
