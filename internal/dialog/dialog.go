// Package dialog defines the blocking user dialogs the engine suspends on.
// Each dialog receives a typed IO value, fills it in and returns; returning
// ErrCancelled aborts the command without touching the document.
package dialog

import (
	"context"
	"errors"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/host"
)

// Dialog names.
const (
	QuickFormat      = "quickFormat"
	DocPrefs         = "integrationDocPrefs"
	SelectItems      = "selectItemsDialog"
	EditBibliography = "editBibliographyDialog"
)

// ErrCancelled is returned by a dialog the user dismissed.
var ErrCancelled = errors.New("dialog cancelled")

// Displayer shows a dialog and blocks until it closes. io is one of the
// *IO types below, matching name.
type Displayer interface {
	Display(ctx context.Context, doc host.Document, name string, io any) error
}

// CitationIO is exchanged with QuickFormat. The dialog replaces
// Citation.Items; Preview renders a candidate without writing it.
type CitationIO struct {
	Citation *citation.Citation
	Preview  func(ctx context.Context, c *citation.Citation) (string, error)
}

// SelectItemsIO is exchanged with SelectItems.
type SelectItemsIO struct {
	ItemIDs []int64
}

// StyleChoice is an installed style offered by DocPrefs.
type StyleChoice struct {
	ID    string
	Title string
}

// DocPrefsIO is exchanged with DocPrefs. It arrives holding the current
// document preferences and leaves holding the chosen ones.
type DocPrefsIO struct {
	StyleID                       string
	Locale                        string
	FieldType                     string
	NoteType                      int
	AutomaticJournalAbbreviations bool
	DelayCitationUpdates          bool

	Styles         []StyleChoice
	SupportedNotes []string
}

// BibliographyEntry is one row of the edit-bibliography list.
type BibliographyEntry struct {
	ItemID  int64
	URIs    []string
	Text    string
	Cited   bool
	Omitted bool
	Custom  bool
}

// EditBibliographyIO is exchanged with EditBibliography. Entries is
// read-only; the dialog reports edits in the remaining fields.
type EditBibliographyIO struct {
	Entries []BibliographyEntry

	// Add lists item ids to include without citing them.
	Add []int64
	// Omit and Restore hold item URIs to hide or show again.
	Omit    []string
	Restore []string
	// Custom maps an item URI to replacement text; "" reverts it.
	Custom map[string]string
}
