// Package session holds the reconciliation state for one open document.
//
// A Session lives across commands. Per command it attaches the host
// document, reads the document data, loads and classifies every field and
// rebuilds two maps from scratch: field index to citation, and citation id
// to field index. From that state it plans the writes that bring the
// document in line with the reference database and the style.
//
// A Session is not safe for concurrent use; the dispatcher serialises all
// commands for a document onto one goroutine.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/docdata"
	"github.com/roach88/citesync/internal/field"
	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/processor"
	"github.com/roach88/citesync/internal/refdb"
	"github.com/roach88/citesync/internal/style"
)

// Session is the state of one document.
type Session struct {
	docID string
	id    string
	ids   IDGenerator
	db    refdb.Database

	doc   host.Document
	data  *docdata.DocumentData
	style *style.Style
	proc  processor.Processor

	// Rebuilt by LoadFields.
	fields       []*field.Field
	citations    map[int]*citation.Citation
	byID         map[string]int
	newIndices   map[int]bool
	bibIndices   []int
	bibliography *citation.Bibliography
	unresolved   []citation.UnresolvedItemError

	// fresh holds the citation ids that joined NewIndices during the
	// current command, so reloading fields mid-command keeps them new.
	fresh map[string]bool
	// bibMisses are items added through the bibliography dialog that the
	// database lacks. Plan does not see them, so they are kept apart.
	bibMisses []citation.UnresolvedItemError

	// Kept across commands until the document's session id changes.
	registered map[string]bool
	pending    map[string]bool
	lastBib    *processor.Result
}

// New returns an empty session for docID.
func New(docID string, db refdb.Database, ids IDGenerator) *Session {
	s := &Session{docID: docID, db: db, ids: ids, fresh: make(map[string]bool)}
	s.resetPersistent()
	s.resetFields()
	return s
}

func (s *Session) resetPersistent() {
	s.registered = make(map[string]bool)
	s.pending = make(map[string]bool)
	s.lastBib = nil
}

func (s *Session) resetFields() {
	s.fields = nil
	s.citations = make(map[int]*citation.Citation)
	s.byID = make(map[string]int)
	s.newIndices = make(map[int]bool)
	s.bibIndices = nil
	s.bibliography = nil
	s.unresolved = nil
}

func (s *Session) DocID() string                 { return s.docID }
func (s *Session) ID() string                    { return s.id }
func (s *Session) Document() host.Document       { return s.doc }
func (s *Session) Data() *docdata.DocumentData   { return s.data }
func (s *Session) Style() *style.Style           { return s.style }
func (s *Session) Processor() processor.Processor { return s.proc }

// Begin attaches doc for one command and reads its document data. It
// reports false when the document carries no data yet; call Init then.
func (s *Session) Begin(ctx context.Context, doc host.Document) (bool, error) {
	s.doc = doc
	s.resetFields()
	s.fresh = make(map[string]bool)
	s.bibMisses = nil

	raw, err := doc.DocumentData(ctx)
	if err != nil {
		return false, fmt.Errorf("read document data: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		s.data = nil
		return false, nil
	}
	data, err := docdata.Deserialize(raw)
	if err != nil {
		return false, err
	}
	s.adopt(data)
	return true, nil
}

// Init gives a document without data the current defaults.
func (s *Session) Init() *docdata.DocumentData {
	s.adopt(docdata.New())
	return s.data
}

func (s *Session) adopt(d *docdata.DocumentData) {
	if d.SessionID == "" {
		d.SessionID = s.ids.Generate()
	}
	if d.SessionID != s.id {
		if s.id != "" {
			slog.Info("document session changed",
				"doc_id", s.docID,
				"old_session", s.id,
				"new_session", d.SessionID,
			)
		}
		s.id = d.SessionID
		s.resetPersistent()
	}
	s.data = d
}

// SetStyle switches the document to st and builds its processor.
func (s *Session) SetStyle(st *style.Style) {
	if s.data.Style.StyleID != st.ID {
		s.data.Style.BibliographyStyleHasBeenSet = false
	}
	p := processor.New(st)
	if err := p.SetLocale(s.data.Style.Locale); err != nil {
		slog.Warn("falling back to style locale",
			"doc_id", s.docID,
			"locale", s.data.Style.Locale,
			"error", err,
		)
	}
	s.style = st
	s.proc = p
	s.data.Style.StyleID = st.ID
	s.data.Style.HasBibliography = st.HasBibliography()
}

// SaveData writes the document data back to the document.
func (s *Session) SaveData(ctx context.Context) error {
	raw, err := s.data.Serialize()
	if err != nil {
		return err
	}
	if err := s.doc.SetDocumentData(ctx, raw); err != nil {
		return fmt.Errorf("write document data: %w", err)
	}
	return nil
}

// Fields returns the fields loaded by the last LoadFields, in document order.
func (s *Session) Fields() []*field.Field {
	return s.fields
}

// Citation returns the citation at field index i, or nil.
func (s *Session) Citation(i int) *citation.Citation {
	return s.citations[i]
}

// CitationIndex returns the field index holding citationID.
func (s *Session) CitationIndex(citationID string) (int, bool) {
	i, ok := s.byID[citationID]
	return i, ok
}

// IndexOf returns the index of hf among the loaded fields, or -1.
func (s *Session) IndexOf(hf host.Field) int {
	if hf == nil {
		return -1
	}
	for i, f := range s.fields {
		if f.Field.Equals(hf) {
			return i
		}
	}
	return -1
}

// NewIndices returns, in order, the indices of citations that are new to
// this session or were involved in an id conflict during this command.
func (s *Session) NewIndices() []int {
	out := make([]int, 0, len(s.newIndices))
	for i := range s.newIndices {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Registered reports whether citationID has been seen by this session.
func (s *Session) Registered(citationID string) bool {
	return s.registered[citationID]
}

// HasBibliography reports whether the document holds a bibliography field.
func (s *Session) HasBibliography() bool {
	return len(s.bibIndices) > 0
}

// Bibliography returns the bibliography descriptor, or nil without a
// bibliography field.
func (s *Session) Bibliography() *citation.Bibliography {
	return s.bibliography
}

// CitationFields returns the host fields holding citations.
func (s *Session) CitationFields() []host.Field {
	return s.fieldsOf(field.KindCitation)
}

// BibliographyFields returns the host fields holding bibliographies.
func (s *Session) BibliographyFields() []host.Field {
	return s.fieldsOf(field.KindBibliography)
}

func (s *Session) fieldsOf(kind field.Kind) []host.Field {
	var out []host.Field
	for _, f := range s.fields {
		if f.Kind == kind {
			out = append(out, f.Field)
		}
	}
	return out
}

// Unresolved returns the items the last plan could not find, followed by
// items added to the bibliography in this command that do not exist.
func (s *Session) Unresolved() []citation.UnresolvedItemError {
	if len(s.bibMisses) == 0 {
		return s.unresolved
	}
	out := make([]citation.UnresolvedItemError, 0, len(s.unresolved)+len(s.bibMisses))
	out = append(out, s.unresolved...)
	return append(out, s.bibMisses...)
}

// LastBibliography returns the most recently generated bibliography.
func (s *Session) LastBibliography() *processor.Result {
	return s.lastBib
}

// MarkPending implements fields.Pending.
func (s *Session) MarkPending(key string) {
	s.pending[key] = true
}

// ClearPending implements fields.Pending.
func (s *Session) ClearPending() {
	for k := range s.pending {
		delete(s.pending, k)
	}
}

// Pending returns the keys of deferred field updates, sorted.
func (s *Session) Pending() []string {
	out := make([]string, 0, len(s.pending))
	for k := range s.pending {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
