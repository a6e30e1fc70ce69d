// Package memhost is an in-memory editor host. It records every capability
// call so tests can assert exactly which fields were written, and it can be
// persisted to a YAML file for the command line.
package memhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/citesync/internal/host"
)

// PlaceholderText is the text of a freshly inserted field.
const PlaceholderText = "{Placeholder}"

// Application holds documents keyed by id.
type Application struct {
	mu     sync.Mutex
	docs   map[string]*Document
	active string
}

// NewApplication returns an application with no documents.
func NewApplication() *Application {
	return &Application{docs: make(map[string]*Document)}
}

// Add registers doc under docID and makes it active.
func (a *Application) Add(docID string, doc *Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs[docID] = doc
	a.active = docID
}

// Doc returns the concrete document for docID, creating it if needed.
func (a *Application) Doc(docID string) *Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.docs[docID]
	if !ok {
		d = NewDocument()
		a.docs[docID] = d
	}
	a.active = docID
	return d
}

func (a *Application) ActiveDocument(ctx context.Context) (host.Document, error) {
	a.mu.Lock()
	id := a.active
	a.mu.Unlock()
	if id == "" {
		return nil, fmt.Errorf("no active document")
	}
	return a.Doc(id), nil
}

func (a *Application) Document(ctx context.Context, docID string) (host.Document, error) {
	return a.Doc(docID), nil
}

func (a *Application) SupportedNotes() []string {
	return []string{"footnotes", "endnotes"}
}

// Call is one recorded capability invocation.
type Call struct {
	Method string
	// Field is the receiver for field methods, nil for document methods.
	Field *Field
	Args  []any
}

// Alert is a recorded DisplayAlert call.
type Alert struct {
	Text    string
	Icon    host.Icon
	Buttons host.Buttons
}

// Document is an in-memory document. Exported fields configure behaviour;
// the zero value of CanInsert is replaced with true by NewDocument.
type Document struct {
	mu sync.Mutex

	data      string
	fields    []*Field
	cursor    *Field
	canInsert bool
	insertAt  int

	answers       []int
	defaultAnswer int

	calls    []Call
	alerts   []Alert
	bibStyle *host.BibliographyStyle
}

// NewDocument returns an empty document that allows insertion at the end.
func NewDocument() *Document {
	return &Document{canInsert: true, insertAt: -1}
}

func (d *Document) record(method string, f *Field, args ...any) {
	d.calls = append(d.calls, Call{Method: method, Field: f, Args: args})
}

func (d *Document) DocumentData(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data, nil
}

func (d *Document) SetDocumentData(ctx context.Context, data string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SetDocumentData", nil, data)
	d.data = data
	return nil
}

func (d *Document) InsertField(ctx context.Context, fieldType string, noteType int) (host.Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.canInsert {
		return nil, fmt.Errorf("cannot insert field here")
	}
	f := &Field{doc: d, text: PlaceholderText, noteType: noteType}
	if d.insertAt >= 0 && d.insertAt <= len(d.fields) {
		d.fields = append(d.fields, nil)
		copy(d.fields[d.insertAt+1:], d.fields[d.insertAt:])
		d.fields[d.insertAt] = f
	} else {
		d.fields = append(d.fields, f)
	}
	d.record("InsertField", f, fieldType, noteType)
	return f, nil
}

func (d *Document) Fields(ctx context.Context, fieldType string) ([]host.Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]host.Field, len(d.fields))
	for i, f := range d.fields {
		out[i] = f
	}
	return out, nil
}

func (d *Document) CursorInField(ctx context.Context, fieldType string) (host.Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursor == nil || d.indexOf(d.cursor) < 0 {
		return nil, nil
	}
	return d.cursor, nil
}

func (d *Document) CanInsertField(ctx context.Context, fieldType string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canInsert, nil
}

func (d *Document) SetBibliographyStyle(ctx context.Context, style host.BibliographyStyle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SetBibliographyStyle", nil, style)
	d.bibStyle = &style
	return nil
}

func (d *Document) Convert(ctx context.Context, fields []host.Field, toFieldType string, toNoteTypes []int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(fields) != len(toNoteTypes) {
		return fmt.Errorf("convert: %d fields but %d note types", len(fields), len(toNoteTypes))
	}
	d.record("Convert", nil, len(fields), toFieldType)
	for i, hf := range fields {
		f, ok := hf.(*Field)
		if !ok {
			return fmt.Errorf("convert: foreign field %T", hf)
		}
		f.noteType = toNoteTypes[i]
	}
	return nil
}

func (d *Document) DisplayAlert(ctx context.Context, text string, icon host.Icon, buttons host.Buttons) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, Alert{Text: text, Icon: icon, Buttons: buttons})
	if len(d.answers) > 0 {
		a := d.answers[0]
		d.answers = d.answers[1:]
		return a, nil
	}
	return d.defaultAnswer, nil
}

func (d *Document) Activate(ctx context.Context) error { return d.noop("Activate") }
func (d *Document) Cleanup(ctx context.Context) error  { return d.noop("Cleanup") }
func (d *Document) Complete(ctx context.Context) error { return d.noop("Complete") }

func (d *Document) noop(method string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(method, nil)
	return nil
}

func (d *Document) indexOf(f *Field) int {
	for i, g := range d.fields {
		if g == f {
			return i
		}
	}
	return -1
}

func (d *Document) remove(f *Field) {
	if i := d.indexOf(f); i >= 0 {
		d.fields = append(d.fields[:i], d.fields[i+1:]...)
	}
	if d.cursor == f {
		d.cursor = nil
	}
}
