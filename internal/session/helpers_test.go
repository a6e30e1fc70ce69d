package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/docdata"
	"github.com/roach88/citesync/internal/fields"
	"github.com/roach88/citesync/internal/host/memhost"
	"github.com/roach88/citesync/internal/refdb"
	"github.com/roach88/citesync/internal/store"
	"github.com/roach88/citesync/internal/style"
)

const cellID = "http://www.zotero.org/styles/cell"

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *refdb.SQL
	doc   *memhost.Document
	sess  *Session
	style *style.Style
	items []refdb.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	n := 0
	db := refdb.NewSQL(st, "lib", refdb.WithKeyGenerator(func() string {
		n++
		return fmt.Sprintf("ITEM%04d", n)
	}))

	reg, err := style.NewRegistry()
	require.NoError(t, err)
	cell, err := reg.Get(cellID)
	require.NoError(t, err)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		doc:   memhost.NewDocument(),
		style: cell,
	}
	for i := 0; i < 5; i++ {
		f.addItem(csl.Item{Title: "title1", Author: []csl.Name{{Literal: fmt.Sprintf("Author No%d", i)}}})
	}

	data := docdata.New()
	data.SessionID = "sess-1"
	data.Style.StyleID = cellID
	data.Style.Locale = "en-US"
	raw, err := data.Serialize()
	require.NoError(t, err)
	f.doc.SetData(raw)

	f.sess = New("doc-1", db, NewSequenceGenerator("cite"))
	return f
}

func (f *fixture) addItem(data csl.Item) refdb.Item {
	f.t.Helper()
	it, err := f.db.AddItem(f.ctx, data)
	require.NoError(f.t, err)
	f.items = append(f.items, it)
	return it
}

func (f *fixture) smith(i int) {
	f.t.Helper()
	data := f.items[i].Data
	data.Author = []csl.Name{{Family: "Smith", Given: "Robert"}}
	data.Issued = &csl.Date{DateParts: [][]int{{2019, 1, 1}}}
	require.NoError(f.t, f.db.UpdateItem(f.ctx, f.items[i].ID, data))
}

// begin starts a command: attach the document, pick the style, load fields.
func (f *fixture) begin() {
	f.t.Helper()
	ok, err := f.sess.Begin(f.ctx, f.doc)
	require.NoError(f.t, err)
	require.True(f.t, ok)
	f.sess.SetStyle(f.style)
	require.NoError(f.t, f.sess.LoadFields(f.ctx))
}

// write plans and applies updates.
func (f *fixture) write(opts PlanOptions) fields.Stats {
	f.t.Helper()
	updates, err := f.sess.Plan(f.ctx, opts)
	require.NoError(f.t, err)
	mode := fields.Immediate
	if opts.Delayed {
		mode = fields.Delayed
	}
	stats, err := fields.NewWriter(mode, f.sess).Write(f.ctx, updates)
	require.NoError(f.t, err)
	require.NoError(f.t, f.sess.SaveData(f.ctx))
	return stats
}

// insert adds a citation of items at the end of the document.
func (f *fixture) insert(items ...int) *memhost.Field {
	f.t.Helper()
	hf := f.doc.AppendField(citation.TempCode, memhost.PlaceholderText)
	f.begin()
	i := f.sess.IndexOf(hf)
	require.GreaterOrEqual(f.t, i, 0)
	c := f.sess.NewCitation()
	for _, n := range items {
		c.Items = append(c.Items, citation.Item{ID: f.items[n].ID})
	}
	f.sess.SetCitation(i, c)
	f.write(PlanOptions{Target: i})
	return hf
}

// edit replaces the items of the citation at index i.
func (f *fixture) edit(i int, items ...int) {
	f.t.Helper()
	f.begin()
	c := f.sess.Citation(i).Clone()
	c.Items = nil
	for _, n := range items {
		c.Items = append(c.Items, citation.Item{ID: f.items[n].ID})
	}
	c.Properties.DontUpdate = false
	f.sess.SetCitation(i, c)
	f.write(PlanOptions{Target: i})
}

func (f *fixture) text(i int) string {
	return f.doc.FieldAt(i).PlainText()
}

func (f *fixture) citationAt(i int) *citation.Citation {
	f.t.Helper()
	c, err := citation.Unserialize(f.doc.FieldAt(i).RawCode())
	require.NoError(f.t, err)
	return c
}
