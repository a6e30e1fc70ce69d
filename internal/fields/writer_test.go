package fields

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/host/memhost"
)

type pendingSet map[string]bool

func (p pendingSet) MarkPending(key string) { p[key] = true }
func (p pendingSet) ClearPending() {
	for k := range p {
		delete(p, k)
	}
}

func threeFields() (*memhost.Document, []*memhost.Field) {
	doc := memhost.NewDocument()
	fs := []*memhost.Field{
		doc.AppendField("TEMP", "a"),
		doc.AppendField("TEMP", "b"),
		doc.AppendField("TEMP", "c"),
	}
	return doc, fs
}

func TestWriter_Immediate(t *testing.T) {
	doc, fs := threeFields()
	pending := pendingSet{"old": true}
	w := NewWriter(Immediate, pending)

	stats, err := w.Write(context.Background(), []Update{
		{Index: 0, Key: "c0", Field: fs[0], Code: "ITEM CSL_CITATION {}", WriteCode: true, Text: "(A, 2001)", WriteText: true},
		{Index: 1, Key: "c1", Field: fs[1]},
		{Index: 2, Key: "c2", Field: fs[2], Text: "{\\i x}", Rich: true, WriteText: true, Target: true},
	})
	require.NoError(t, err)

	assert.Equal(t, Stats{Codes: 1, Texts: 2}, stats)
	assert.Equal(t, 3, stats.Writes())
	assert.Equal(t, "ITEM CSL_CITATION {}", fs[0].RawCode())
	assert.Equal(t, "(A, 2001)", fs[0].PlainText())
	assert.Equal(t, "TEMP", fs[1].RawCode())
	assert.Equal(t, "x", fs[2].PlainText())
	assert.Empty(t, pending)
	assert.Len(t, doc.CallsTo("SetText"), 2)
}

func TestWriter_DelayedWritesTargetOnly(t *testing.T) {
	doc, fs := threeFields()
	pending := pendingSet{}
	w := NewWriter(Delayed, pending)

	stats, err := w.Write(context.Background(), []Update{
		{Index: 0, Key: "c0", Field: fs[0], Code: "x", WriteCode: true, Text: "(A)", WriteText: true},
		{Index: 1, Key: "c1", Field: fs[1], Code: "y", WriteCode: true, Text: "(B)", WriteText: true, Target: true},
		{Index: 2, Key: BibliographyKey, Field: fs[2], Text: "bib", WriteText: true},
	})
	require.NoError(t, err)

	assert.Equal(t, Stats{Codes: 1, Texts: 1, Deferred: 2}, stats)
	assert.Equal(t, pendingSet{"c0": true, "c1": true, BibliographyKey: true}, pending)

	for _, c := range doc.Calls() {
		if c.Method == "SetText" || c.Method == "SetCode" {
			assert.True(t, c.Field == fs[1], "%s went to another field", c.Method)
		}
	}
	setText := doc.CallsTo("SetText")
	require.Len(t, setText, 1)
	assert.True(t, strings.Contains(setText[0].Args[0].(string), "\\uldash"))
	assert.Equal(t, true, setText[0].Args[1])
	assert.Equal(t, "(B)", fs[1].PlainText())
	assert.Equal(t, "a", fs[0].PlainText())
}

func TestWriter_RemoveCodesAndDiscard(t *testing.T) {
	doc, fs := threeFields()
	w := NewWriter(Immediate, nil)

	n, err := w.RemoveCodes(context.Background(), []host.Field{fs[0], fs[1]})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "", fs[0].RawCode())
	assert.Equal(t, "a", fs[0].PlainText())

	require.NoError(t, w.Discard(context.Background(), fs[2]))
	assert.Equal(t, 2, doc.Len())
	assert.True(t, fs[2].Deleted())
	assert.NoError(t, w.Discard(context.Background(), nil))
}

func TestDelayedMarker(t *testing.T) {
	assert.Equal(t, "{\\uldash (Smith, 2019)}", DelayedMarker("(Smith, 2019)"))
	assert.Equal(t, "delayed", Delayed.String())
	assert.Equal(t, "immediate", Immediate.String())

	assert.True(t, IsDelayed(DelayedMarker("(Smith, 2019)")))
	assert.True(t, IsDelayed(DelayedMarker("{\\i Cell}")))
	assert.False(t, IsDelayed("(Smith, 2019)"))
	assert.False(t, IsDelayed("{\\i Cell}"))
}
