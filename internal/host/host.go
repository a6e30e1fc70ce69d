// Package host defines the capability interface an editor adapter exposes to
// the synchronization engine. The engine depends on these interfaces only;
// every word processor supplies its own implementation.
//
// All methods may block on the editor and take a context.
package host

import "context"

// Application is a word-processing application.
type Application interface {
	ActiveDocument(ctx context.Context) (Document, error)
	Document(ctx context.Context, docID string) (Document, error)
	// SupportedNotes lists the note kinds the host can place fields in.
	SupportedNotes() []string
}

// Document is a single open document.
type Document interface {
	DocumentData(ctx context.Context) (string, error)
	SetDocumentData(ctx context.Context, data string) error

	// InsertField inserts a field at the cursor. The new field has
	// non-empty placeholder text and an empty code.
	InsertField(ctx context.Context, fieldType string, noteType int) (Field, error)
	// Fields returns all fields of fieldType in document order.
	Fields(ctx context.Context, fieldType string) ([]Field, error)
	// CursorInField returns the field holding the cursor, or nil.
	CursorInField(ctx context.Context, fieldType string) (Field, error)
	CanInsertField(ctx context.Context, fieldType string) (bool, error)

	SetBibliographyStyle(ctx context.Context, style BibliographyStyle) error
	// Convert changes fields to another field kind and note type.
	// toNoteTypes has one entry per field.
	Convert(ctx context.Context, fields []Field, toFieldType string, toNoteTypes []int) error

	DisplayAlert(ctx context.Context, text string, icon Icon, buttons Buttons) (int, error)
	Activate(ctx context.Context) error
	Cleanup(ctx context.Context) error
	Complete(ctx context.Context) error
}

// Field is an anchor in the document with a hidden code and visible text.
type Field interface {
	Text(ctx context.Context) (string, error)
	SetText(ctx context.Context, text string, isRich bool) error
	Code(ctx context.Context) (string, error)
	SetCode(ctx context.Context, code string) error
	Delete(ctx context.Context) error
	// RemoveCode turns the field into plain text, keeping its contents.
	RemoveCode(ctx context.Context) error
	Select(ctx context.Context) error
	// Equals reports whether other refers to the same document field.
	Equals(other Field) bool
	NoteIndex(ctx context.Context) (int, error)
}

// BibliographyStyle carries paragraph layout for the bibliography. Values are
// passed through from the style without interpretation.
type BibliographyStyle struct {
	FirstLineIndent int
	BodyIndent      int
	LineSpacing     int
	EntrySpacing    int
	TabStops        []int
}

// Icon selects the alert icon.
type Icon int

const (
	IconStop Icon = iota
	IconNotice
	IconCaution
)

// Buttons selects the alert button set.
type Buttons int

const (
	ButtonsOK Buttons = iota
	ButtonsOKCancel
	ButtonsYesNo
	ButtonsYesNoCancel
)

// Alert results for two-button alerts.
const (
	ResultCancel = 0
	ResultOK     = 1
	ResultNo     = 0
	ResultYes    = 1
)
