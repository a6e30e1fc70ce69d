package dialog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/citation"
)

func TestScript_QueueThenDefault(t *testing.T) {
	ctx := context.Background()
	s := NewScript().
		Queue(QuickFormat, CiteIDs(1)).
		Default(QuickFormat, CiteIDs(2, 3))

	io := &CitationIO{Citation: citation.New("c1")}
	require.NoError(t, s.Display(ctx, nil, QuickFormat, io))
	assert.Equal(t, []int64{1}, io.Citation.ItemIDs())

	require.NoError(t, s.Display(ctx, nil, QuickFormat, io))
	assert.Equal(t, []int64{2, 3}, io.Citation.ItemIDs())

	assert.Equal(t, []string{QuickFormat, QuickFormat}, s.Calls())
}

func TestScript_UnansweredIsCancelled(t *testing.T) {
	s := NewScript()
	err := s.Display(context.Background(), nil, EditBibliography, &EditBibliographyIO{})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, []string{EditBibliography}, s.Calls())

	s.ResetCalls()
	assert.Empty(t, s.Calls())
}

func TestScript_Cancel(t *testing.T) {
	s := NewScript().Queue(DocPrefs, Cancel())
	err := s.Display(context.Background(), nil, DocPrefs, &DocPrefsIO{})
	assert.True(t, errors.Is(err, ErrCancelled))
}

func TestCite_RunsPreview(t *testing.T) {
	var previewed []int64
	io := &CitationIO{
		Citation: citation.New("c1"),
		Preview: func(ctx context.Context, c *citation.Citation) (string, error) {
			previewed = c.ItemIDs()
			return "(preview)", nil
		},
	}
	require.NoError(t, CiteIDs(4, 5)(context.Background(), io))
	assert.Equal(t, []int64{4, 5}, previewed)
}

func TestCite_PreviewErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	io := &CitationIO{
		Citation: citation.New("c1"),
		Preview: func(ctx context.Context, c *citation.Citation) (string, error) {
			return "", boom
		},
	}
	assert.ErrorIs(t, CiteIDs(1)(context.Background(), io), boom)
}

func TestCite_SelectItems(t *testing.T) {
	io := &SelectItemsIO{ItemIDs: []int64{9}}
	require.NoError(t, CiteIDs(1, 2)(context.Background(), io))
	assert.Equal(t, []int64{1, 2}, io.ItemIDs)
}

func TestCite_WrongIO(t *testing.T) {
	err := CiteIDs(1)(context.Background(), &DocPrefsIO{})
	assert.Error(t, err)
}

func TestPrefsAndBibliography(t *testing.T) {
	ctx := context.Background()

	p := &DocPrefsIO{StyleID: "old"}
	require.NoError(t, UseStyle("http://www.zotero.org/styles/cell")(ctx, p))
	assert.Equal(t, "http://www.zotero.org/styles/cell", p.StyleID)
	assert.Error(t, UseStyle("x")(ctx, &CitationIO{}))

	b := &EditBibliographyIO{}
	require.NoError(t, Bibliography(func(io *EditBibliographyIO) {
		io.Omit = append(io.Omit, "http://zotero.org/users/local/lib/items/A")
	})(ctx, b))
	assert.Len(t, b.Omit, 1)
	assert.Error(t, Bibliography(func(*EditBibliographyIO) {})(ctx, p))

	assert.NoError(t, Accept()(ctx, b))
}
