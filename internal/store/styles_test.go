package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutStyleUpserts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.PutStyle(ctx, StyleRecord{ID: "http://x/b", Title: "B", Source: "v1"}))
	require.NoError(t, s.PutStyle(ctx, StyleRecord{ID: "http://x/a", Title: "A", Source: "a"}))
	require.NoError(t, s.PutStyle(ctx, StyleRecord{ID: "http://x/b", Title: "B2", Source: "v2", Origin: "http://origin"}))

	styles, err := s.ListStyles(ctx)
	require.NoError(t, err)
	require.Len(t, styles, 2)
	assert.Equal(t, "http://x/a", styles[0].ID)
	assert.Equal(t, "B2", styles[1].Title)
	assert.Equal(t, "v2", styles[1].Source)
	assert.Equal(t, "http://origin", styles[1].Origin)
	assert.NotEqual(t, styles[0].SourceHash, styles[1].SourceHash)
}
