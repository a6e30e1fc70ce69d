// Package docdata encodes the per-document configuration blob stored inside
// the host document: citation style, locale, field kind preference and the
// schema version.
//
// Two wire encodings exist. Data version 3 and below use a legacy XML markup
// form; version 4 and above use JSON. Deserialize accepts either and detects
// the encoding from the leading character.
package docdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/citesync/internal/version"
)

// ErrMalformed is wrapped by every decode failure. Callers cannot synchronize
// a document whose configuration does not parse.
var ErrMalformed = errors.New("malformed document data")

// LegacyDataVersion is the highest data version using the XML encoding.
const LegacyDataVersion = 3

// Field kinds a host may offer.
const (
	FieldTypeField         = "Field"
	FieldTypeBookmark      = "Bookmark"
	FieldTypeReferenceMark = "ReferenceMark"
)

// Note types. Zero places citations in the body text.
const (
	NoteTypeNone     = 0
	NoteTypeFootnote = 1
	NoteTypeEndnote  = 2
)

// DocumentData is the decoded configuration blob.
type DocumentData struct {
	Style         Style  `json:"style"`
	Prefs         Prefs  `json:"prefs"`
	SessionID     string `json:"sessionID"`
	ZoteroVersion string `json:"zoteroVersion"`
	DataVersion   int    `json:"dataVersion"`
}

// Style selects the citation style for the document.
type Style struct {
	StyleID                     string `json:"styleID"`
	Locale                      string `json:"locale"`
	HasBibliography             bool   `json:"hasBibliography"`
	BibliographyStyleHasBeenSet bool   `json:"bibliographyStyleHasBeenSet"`
}

// Prefs holds document-level integration preferences. Keys the engine does
// not know about are kept in Extra and written back unchanged.
type Prefs struct {
	NoteType                      int
	FieldType                     string
	AutomaticJournalAbbreviations bool
	ExtractingLibraryID           int
	ExtractingLibraryName         string
	SuppressTrailingPunctuation   bool
	DelayCitationUpdates          bool
	UseEndnotes                   bool
	Extra                         map[string]json.RawMessage
}

// New returns document data with current-version defaults.
func New() *DocumentData {
	return &DocumentData{
		Prefs: Prefs{
			FieldType: FieldTypeField,
			NoteType:  NoteTypeNone,
		},
		ZoteroVersion: version.Version,
		DataVersion:   version.DataVersion,
	}
}

// Deserialize decodes either wire form.
func Deserialize(s string) (*DocumentData, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	switch trimmed[0] {
	case '<':
		return unmarshalLegacy(trimmed)
	case '{':
		d := &DocumentData{}
		if err := json.Unmarshal([]byte(trimmed), d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized leading character %q", ErrMalformed, trimmed[0])
	}
}

// Serialize stamps the running version into ZoteroVersion and encodes d in
// the form selected by DataVersion.
func (d *DocumentData) Serialize() (string, error) {
	d.ZoteroVersion = version.Version

	if d.IsLegacy() {
		return marshalLegacy(d)
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("serialize document data: %w", err)
	}
	return string(data), nil
}

// IsLegacy reports whether d encodes to the XML form.
func (d *DocumentData) IsLegacy() bool {
	return d.DataVersion <= LegacyDataVersion
}

// Clone returns a deep copy.
func (d *DocumentData) Clone() *DocumentData {
	c := *d
	if d.Prefs.Extra != nil {
		c.Prefs.Extra = make(map[string]json.RawMessage, len(d.Prefs.Extra))
		for k, v := range d.Prefs.Extra {
			c.Prefs.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}
