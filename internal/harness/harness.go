package harness

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/docdata"
	"github.com/roach88/citesync/internal/host/memhost"
	"github.com/roach88/citesync/internal/integration"
	"github.com/roach88/citesync/internal/refdb"
	"github.com/roach88/citesync/internal/session"
	"github.com/roach88/citesync/internal/store"
	"github.com/roach88/citesync/internal/style"
	"github.com/roach88/citesync/internal/testutil"
)

// DocID is the id of the scenario document.
const DocID = "scenario"

// Library is the local library name used for item URIs.
const Library = "harness"

// DefaultStyle is offered to scenario documents without data.
const DefaultStyle = "http://www.zotero.org/styles/cell"

// Harness runs one scenario. Ids, keys and trace sequence numbers are
// deterministic, so repeated runs produce identical results.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	db       *refdb.SQL
	keys     *testutil.KeySequence
	clock    *testutil.DeterministicClock
	doc      *memhost.Document
	dialogs  *dialog.Script
	iface    *integration.Interface
	items    map[string]refdb.Item
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database and document:
//  1. create the store, reference database and style registry
//  2. seed items and the document
//  3. execute steps, checking step expectations
//  4. evaluate assertions against the trace and the final state
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	styles, err := style.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load styles: %w", err)
	}

	keys := testutil.NewKeySequence()
	h := &Harness{
		scenario: scenario,
		store:    st,
		db:       refdb.NewSQL(st, Library, refdb.WithKeyGenerator(keys.Next)),
		keys:     keys,
		clock:    testutil.NewDeterministicClock(),
		dialogs:  dialog.NewScript().Default(dialog.DocPrefs, dialog.Accept()),
		items:    make(map[string]refdb.Item),
	}

	if err := h.addItems(ctx, scenario.Items); err != nil {
		return nil, err
	}
	if err := h.seedDocument(); err != nil {
		return nil, err
	}

	app := memhost.NewApplication()
	app.Add(DocID, h.doc)

	opts := []integration.Option{
		integration.WithJournal(st),
		integration.WithIDGenerator(session.NewSequenceGenerator("id")),
		integration.WithDefaultStyle(DefaultStyle),
	}
	if scenario.CitationDialog != "" {
		opts = append(opts, integration.WithCitationDialog(scenario.CitationDialog))
	}
	h.iface = integration.New(app, h.db, styles, h.dialogs, opts...)
	defer h.iface.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Command, err)
		}
	}

	result.Document = h.doc.ToFile()
	if sess, ok := h.iface.Session(DocID); ok {
		if idx := sess.NewIndices(); len(idx) > 0 {
			result.NewIndices = idx
		}
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, Doc: h.doc}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (s ItemSpec) data() csl.Item {
	it := csl.Item{Title: s.Title, Author: s.Authors}
	if s.Year != 0 {
		it.Issued = &csl.Date{DateParts: [][]int{{s.Year}}}
	}
	return it
}

func (h *Harness) addItems(ctx context.Context, defs []ItemSpec) error {
	for _, def := range defs {
		h.keys.Push(def.Key)
		it, err := h.db.AddItem(ctx, def.data())
		if err != nil {
			return fmt.Errorf("add item %s: %w", def.Key, err)
		}
		h.items[def.Key] = it
	}
	return nil
}

func (h *Harness) updateItems(ctx context.Context, defs []ItemSpec) error {
	for _, def := range defs {
		it := h.items[def.Key]
		data := def.data()
		data.ID = it.Data.ID
		if err := h.db.UpdateItem(ctx, it.ID, data); err != nil {
			return fmt.Errorf("update item %s: %w", def.Key, err)
		}
		it.Data = data
		h.items[def.Key] = it
	}
	return nil
}

// seedDocument builds the initial document and, when a style is named and
// the document has no data yet, gives it data using that style.
func (h *Harness) seedDocument() error {
	h.doc = memhost.NewDocument()
	if h.scenario.Document != nil {
		doc, err := memhost.FromFile(*h.scenario.Document)
		if err != nil {
			return fmt.Errorf("document: %w", err)
		}
		h.doc = doc
	}
	if h.doc.Data() != "" || h.scenario.Style == "" {
		return nil
	}

	data := docdata.New()
	data.SessionID = "scenario-session"
	data.Style.StyleID = h.scenario.Style
	data.Style.Locale = "en-US"
	data.Prefs.DelayCitationUpdates = h.scenario.DelayUpdates
	raw, err := data.Serialize()
	if err != nil {
		return fmt.Errorf("document data: %w", err)
	}
	h.doc.SetData(raw)
	return nil
}

func (h *Harness) itemIDs(keys []string) []int64 {
	ids := make([]int64, len(keys))
	for i, k := range keys {
		ids[i] = h.items[k].ID
	}
	return ids
}

func (h *Harness) itemURIs(keys []string) []string {
	uris := make([]string, len(keys))
	for i, k := range keys {
		uris[i] = h.items[k].URI
	}
	return uris
}

func (h *Harness) field(i int) (*memhost.Field, error) {
	if i < 0 || i >= h.doc.Len() {
		return nil, fmt.Errorf("field %d out of range (%d fields)", i, h.doc.Len())
	}
	return h.doc.FieldAt(i), nil
}

// prepare applies the document edits of a step and queues its answers.
func (h *Harness) prepare(ctx context.Context, step Step) error {
	if err := h.addItems(ctx, step.AddItems); err != nil {
		return err
	}
	if err := h.updateItems(ctx, step.UpdateItems); err != nil {
		return err
	}

	edits := make([]int, 0, len(step.Edit))
	for i := range step.Edit {
		edits = append(edits, i)
	}
	sort.Ints(edits)
	for _, i := range edits {
		f, err := h.field(i)
		if err != nil {
			return err
		}
		f.Edit(step.Edit[i])
	}
	if step.Paste != nil {
		f, err := h.field(*step.Paste)
		if err != nil {
			return err
		}
		h.doc.AppendField(f.RawCode(), f.PlainText())
	}
	if step.Cursor != nil {
		if *step.Cursor < 0 {
			h.doc.SetCursor(nil)
		} else {
			f, err := h.field(*step.Cursor)
			if err != nil {
				return err
			}
			h.doc.SetCursor(f)
		}
	}
	if step.InsertAt != nil {
		h.doc.SetInsertAt(*step.InsertAt)
	}
	if step.CanInsert != nil {
		h.doc.SetCanInsert(*step.CanInsert)
	}

	for _, name := range step.Cancel {
		h.dialogs.Queue(name, dialog.Cancel())
	}
	if step.Prefs != nil {
		h.dialogs.Queue(dialog.DocPrefs, dialog.Prefs(step.Prefs.apply))
	}
	if len(step.Cite) > 0 {
		name := h.scenario.CitationDialog
		if name == "" {
			name = dialog.QuickFormat
		}
		h.dialogs.Queue(name, dialog.CiteIDs(h.itemIDs(step.Cite)...))
	}
	if b := step.Bibliography; b != nil {
		custom := make(map[string]string, len(b.Custom))
		for k, text := range b.Custom {
			custom[h.items[k].URI] = text
		}
		h.dialogs.Queue(dialog.EditBibliography, dialog.Bibliography(func(io *dialog.EditBibliographyIO) {
			io.Add = h.itemIDs(b.Add)
			io.Omit = h.itemURIs(b.Omit)
			io.Restore = h.itemURIs(b.Restore)
			if len(custom) > 0 {
				io.Custom = custom
			}
		}))
	}
	h.doc.QueueAnswers(step.Alerts...)
	return nil
}

func (p *PrefsSpec) apply(io *dialog.DocPrefsIO) {
	if p.Style != "" {
		io.StyleID = p.Style
	}
	if p.Locale != "" {
		io.Locale = p.Locale
	}
	if p.FieldType != "" {
		io.FieldType = p.FieldType
	}
	if p.NoteType != nil {
		io.NoteType = *p.NoteType
	}
	if p.DelayUpdates != nil {
		io.DelayCitationUpdates = *p.DelayUpdates
	}
}

// executeStep runs one command and records what it did.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if err := h.prepare(ctx, step); err != nil {
		return err
	}

	h.event(result, i, EventCommand, step.Command, -1, "")
	execErr := h.iface.Exec(ctx, step.Command, DocID)
	h.record(result, i)

	outcome, detail := "ok", ""
	if execErr != nil {
		outcome = string(integration.CodeOf(execErr))
		if outcome == "" {
			return execErr
		}
		detail = execErr.Error()
	}
	h.event(result, i, EventOutcome, outcome, -1, detail)

	if step.Expect != nil {
		h.checkExpect(i, step.Expect, outcome, result)
	}
	return nil
}

// record moves the calls, dialogs and alerts of the last command into the
// trace.
func (h *Harness) record(result *Result, step int) {
	for _, name := range h.dialogs.Calls() {
		h.event(result, step, EventDialog, name, -1, "")
	}
	for _, call := range h.doc.Calls() {
		idx := -1
		if call.Field != nil {
			idx = h.doc.IndexOf(call.Field)
		}
		h.event(result, step, EventCall, call.Method, idx, "")
	}
	for _, a := range h.doc.Alerts() {
		h.event(result, step, EventAlert, "DisplayAlert", -1, a.Text)
	}
	h.dialogs.ResetCalls()
	h.doc.ResetRecording()
}

func (h *Harness) event(result *Result, step int, kind, name string, field int, detail string) {
	result.Trace = append(result.Trace, TraceEvent{
		Seq:    h.clock.Next(),
		Step:   step,
		Kind:   kind,
		Name:   name,
		Field:  field,
		Detail: detail,
	})
}

func (h *Harness) checkExpect(step int, exp *Expect, outcome string, result *Result) {
	want := exp.Error
	if want == "" {
		want = "ok"
	}
	if want != outcome {
		result.AddError(fmt.Sprintf("step %d: expected outcome %s, got %s", step, want, outcome))
	}
	if exp.Fields != nil && *exp.Fields != h.doc.Len() {
		result.AddError(fmt.Sprintf("step %d: expected %d fields, got %d", step, *exp.Fields, h.doc.Len()))
	}
	idx := make([]int, 0, len(exp.Texts))
	for i := range exp.Texts {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		f, err := h.field(i)
		if err != nil {
			result.AddError(fmt.Sprintf("step %d: %v", step, err))
			continue
		}
		if got := f.PlainText(); got != exp.Texts[i] {
			result.AddError(fmt.Sprintf("step %d: field %d text %q, want %q", step, i, got, exp.Texts[i]))
		}
	}
}
