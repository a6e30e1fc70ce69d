package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/field"
)

// LoadFields enumerates the document's fields, classifies them and rebuilds
// the index maps.
//
// Identity conflicts are settled here, before any prompt: when a citation
// id repeats, the first occurrence keeps it and each later one gets a fresh
// id. Either copy may be the stale one, so both join NewIndices. A citation
// id this session has never registered (pasted from another document, or
// every citation on a new session) joins NewIndices and is registered.
// Calling LoadFields again within the same command keeps those citations
// in NewIndices.
func (s *Session) LoadFields(ctx context.Context) error {
	s.resetFields()

	hfs, err := s.doc.Fields(ctx, s.data.Prefs.FieldType)
	if err != nil {
		return fmt.Errorf("list fields: %w", err)
	}

	for i, hf := range hfs {
		f, err := field.LoadExisting(ctx, hf)
		if err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		s.fields = append(s.fields, f)

		switch {
		case f.Kind == field.KindCitation:
			s.loadCitation(i, f.Citation)
		case f.Kind == field.KindBibliography:
			s.bibIndices = append(s.bibIndices, i)
			if s.bibliography == nil {
				s.bibliography = f.Bibliography
			}
		case f.Corrupt:
			slog.Warn("ignoring unrecognised field",
				"doc_id", s.docID,
				"index", i,
				"error", f.Err,
			)
		}
	}

	slog.Debug("fields loaded",
		"doc_id", s.docID,
		"fields", len(s.fields),
		"citations", len(s.citations),
		"bibliographies", len(s.bibIndices),
		"new_indices", len(s.newIndices),
	)
	return nil
}

func (s *Session) loadCitation(i int, c *citation.Citation) {
	switch first, dup := s.byID[c.CitationID]; {
	case c.CitationID == "":
		c.CitationID = s.ids.Generate()
		s.newIndices[i] = true
	case dup:
		id := s.ids.Generate()
		slog.Info("duplicate citation id reassigned",
			"doc_id", s.docID,
			"citation_id", c.CitationID,
			"index", i,
			"first_index", first,
			"new_id", id,
		)
		s.fresh[c.CitationID] = true
		c.CitationID = id
		s.newIndices[first] = true
		s.newIndices[i] = true
	case !s.registered[c.CitationID] || s.fresh[c.CitationID]:
		s.newIndices[i] = true
	}
	if s.newIndices[i] {
		s.fresh[c.CitationID] = true
	}
	s.registered[c.CitationID] = true
	s.byID[c.CitationID] = i
	s.citations[i] = c
}

// NewCitation returns an empty citation with a fresh id.
func (s *Session) NewCitation() *citation.Citation {
	return citation.New(s.ids.Generate())
}

// SetCitation places c at field index i, typically the result of a citation
// dialog, and marks the index new.
func (s *Session) SetCitation(i int, c *citation.Citation) {
	if old := s.citations[i]; old != nil && old.CitationID != c.CitationID {
		delete(s.byID, old.CitationID)
	}
	if j, taken := s.byID[c.CitationID]; c.CitationID == "" || (taken && j != i) {
		c.CitationID = s.ids.Generate()
	}
	s.citations[i] = c
	s.byID[c.CitationID] = i
	s.registered[c.CitationID] = true
	s.fresh[c.CitationID] = true
	s.newIndices[i] = true
}
