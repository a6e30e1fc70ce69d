package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/docdata"
	"github.com/roach88/citesync/internal/host/memhost"
	"github.com/roach88/citesync/internal/refdb"
	"github.com/roach88/citesync/internal/session"
	"github.com/roach88/citesync/internal/store"
	"github.com/roach88/citesync/internal/style"
)

const (
	cellID      = "http://www.zotero.org/styles/cell"
	birdsID     = "http://www.example.com/csl/waterbirds"
	zoteroBirds = "http://www.zotero.org/styles/waterbirds"
)

type env struct {
	t       *testing.T
	ctx     context.Context
	app     *memhost.Application
	store   *store.Store
	db      *refdb.SQL
	styles  *style.Registry
	dialogs *dialog.Script
	iface   *Interface
	items   []refdb.Item

	installs atomic.Int32
}

// newEnv builds a dispatcher over an in-memory host, a fresh SQLite
// database with five items and a scripted dialog layer whose DocPrefs
// answer picks the cell style.
func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "citesync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	n := 0
	db := refdb.NewSQL(st, "lib", refdb.WithKeyGenerator(func() string {
		n++
		return fmt.Sprintf("ITEM%04d", n)
	}))

	styles, err := style.NewRegistry()
	require.NoError(t, err)

	e := &env{
		t:       t,
		ctx:     context.Background(),
		app:     memhost.NewApplication(),
		store:   st,
		db:      db,
		styles:  styles,
		dialogs: dialog.NewScript().Default(dialog.DocPrefs, dialog.UseStyle(cellID)),
	}
	for i := 0; i < 5; i++ {
		e.addItem(csl.Item{Title: "title1", Author: []csl.Name{{Literal: fmt.Sprintf("Author No%d", i)}}})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.installs.Add(1)
		fmt.Fprintf(w, "id: %q\ntitle: \"Waterbirds\"\nbibliography: {}\n", r.URL.Query().Get("id"))
	}))
	t.Cleanup(srv.Close)
	installer := &style.Installer{
		Registry: styles,
		Client:   srv.Client(),
		Rewrite: func(id string) string {
			return srv.URL + "/style?id=" + url.QueryEscape(id)
		},
	}

	base := []Option{
		WithInstaller(installer),
		WithJournal(st),
		WithIDGenerator(session.NewSequenceGenerator("id")),
	}
	e.iface = New(e.app, db, styles, e.dialogs, append(base, opts...)...)
	t.Cleanup(e.iface.Close)
	return e
}

func (e *env) addItem(data csl.Item) refdb.Item {
	e.t.Helper()
	it, err := e.db.AddItem(e.ctx, data)
	require.NoError(e.t, err)
	e.items = append(e.items, it)
	return it
}

// smith gives item i a dated author so citations of it can collide.
func (e *env) smith(i int) {
	e.t.Helper()
	data := e.items[i].Data
	data.Author = []csl.Name{{Family: "Smith", Given: "Robert"}}
	data.Issued = &csl.Date{DateParts: [][]int{{2019, 1, 1}}}
	require.NoError(e.t, e.db.UpdateItem(e.ctx, e.items[i].ID, data))
}

// initDoc gives docID existing document data using styleID.
func (e *env) initDoc(docID, styleID string, mutate ...func(*docdata.DocumentData)) *memhost.Document {
	e.t.Helper()
	data := docdata.New()
	data.SessionID = "sess-" + docID
	data.Style.StyleID = styleID
	data.Style.Locale = "en-US"
	data.Style.HasBibliography = true
	data.Style.BibliographyStyleHasBeenSet = true
	data.Prefs.AutomaticJournalAbbreviations = true
	for _, m := range mutate {
		m(data)
	}
	raw, err := data.Serialize()
	require.NoError(e.t, err)

	doc := e.app.Doc(docID)
	doc.SetData(raw)
	return doc
}

// cite makes the next citation dialog select items.
func (e *env) cite(items ...int) {
	ids := make([]int64, len(items))
	for i, n := range items {
		ids[i] = e.items[n].ID
	}
	e.dialogs.Queue(dialog.QuickFormat, dialog.CiteIDs(ids...))
}

func (e *env) exec(command, docID string) error {
	return e.iface.Exec(e.ctx, command, docID)
}

func (e *env) mustExec(command, docID string) {
	e.t.Helper()
	require.NoError(e.t, e.exec(command, docID))
}

func (e *env) session(docID string) *session.Session {
	e.t.Helper()
	s, ok := e.iface.Session(docID)
	require.True(e.t, ok)
	return s
}

func citationAt(t *testing.T, doc *memhost.Document, i int) *citation.Citation {
	t.Helper()
	c, err := citation.Unserialize(doc.FieldAt(i).RawCode())
	require.NoError(t, err)
	return c
}

func dataOf(t *testing.T, doc *memhost.Document) *docdata.DocumentData {
	t.Helper()
	d, err := docdata.Deserialize(doc.Data())
	require.NoError(t, err)
	return d
}

func countDialogs(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}
