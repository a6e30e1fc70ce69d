package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/refdb"
)

// BibliographyRows lists every work the bibliography could show, including
// omitted ones, for the edit-bibliography dialog.
func (s *Session) BibliographyRows(ctx context.Context) ([]dialog.BibliographyEntry, error) {
	if s.bibliography == nil {
		return nil, fmt.Errorf("bibliography rows: no bibliography field")
	}
	order, resolved, err := s.resolveAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	rows := []dialog.BibliographyEntry{}
	add := func(r resolvedItem, cited bool) {
		if seen[r.key] {
			return
		}
		seen[r.key] = true
		row := dialog.BibliographyEntry{
			ItemID:  r.item.ID,
			URIs:    r.uris,
			Text:    s.proc.FormatCitation(s.cites([]resolvedItem{r}, nil)).Plain,
			Cited:   cited,
			Omitted: s.bibliography.IsOmitted(r.uris),
		}
		for _, uri := range r.uris {
			if text, ok := s.bibliography.CustomText(uri); ok {
				row.Text, row.Custom = text, true
				break
			}
		}
		rows = append(rows, row)
	}

	for _, i := range order {
		for _, r := range resolved[i] {
			add(r, true)
		}
	}
	for _, uris := range s.bibliography.Uncited {
		r, ok, err := s.resolveURIs(ctx, uris)
		if err != nil {
			return nil, err
		}
		if ok {
			add(r, false)
		}
	}
	return rows, nil
}

// ApplyBibliographyEdits records the dialog's edits in the bibliography
// descriptor. The next Plan renders them.
func (s *Session) ApplyBibliographyEdits(ctx context.Context, io *dialog.EditBibliographyIO) error {
	if s.bibliography == nil {
		return fmt.Errorf("apply bibliography edits: no bibliography field")
	}
	b := s.bibliography

	for _, id := range io.Add {
		it, err := s.db.ItemByID(ctx, id)
		if errors.Is(err, refdb.ErrNotFound) {
			s.bibMisses = append(s.bibMisses, citation.UnresolvedItemError{ItemID: id})
			continue
		}
		if err != nil {
			return fmt.Errorf("add uncited item %d: %w", id, err)
		}
		b.AddUncited([]string{it.URI})
		b.SetOmitted([]string{it.URI}, false)
	}
	for _, uri := range io.Omit {
		b.SetOmitted([]string{uri}, true)
	}
	for _, uri := range io.Restore {
		b.SetOmitted([]string{uri}, false)
	}
	for uri, text := range io.Custom {
		b.SetCustom(uri, text)
	}
	return nil
}
