package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/citesync/internal/fields"
	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/processor"
)

// ModifiedPrompt asks whether to keep a hand-edited citation.
const ModifiedPrompt = "You have modified this citation since it was generated. " +
	"Keeping your modification will prevent it from being updated.\n\n" +
	"Original: %s\nModified: %s\n\nKeep your modification?"

// PlanOptions controls Plan.
type PlanOptions struct {
	// Target is the index of the field being edited, or -1.
	Target int
	// Force rewrites every field whose text differs from its generated
	// text, not only fields whose output changed.
	Force bool
	// Delayed means only Target will be written. Other fields are planned
	// but never prompt.
	Delayed bool
}

// Plan renders every citation and bibliography and returns the updates
// needed to bring the document in line, ordered by field index. Citations
// whose text was edited by hand and would be overwritten are confirmed with
// the user first: keeping the edit sets dontUpdate on the citation.
func (s *Session) Plan(ctx context.Context, opts PlanOptions) ([]fields.Update, error) {
	if s.proc == nil {
		return nil, fmt.Errorf("plan: no style")
	}

	order, resolved, err := s.resolveAll(ctx)
	if err != nil {
		return nil, err
	}
	suffixes := s.disambiguate(order, resolved)

	updates := make([]fields.Update, 0, len(order)+len(s.bibIndices))
	for _, i := range order {
		u, err := s.planCitation(ctx, i, resolved[i], suffixes, opts)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}

	if len(s.bibIndices) > 0 {
		bib, err := s.planBibliography(ctx, order, resolved, suffixes, opts)
		if err != nil {
			return nil, err
		}
		updates = append(updates, bib...)
	}

	sort.Slice(updates, func(a, b int) bool { return updates[a].Index < updates[b].Index })
	return updates, nil
}

// disambiguate assigns suffixes to distinct works that share a base label,
// in order of first appearance in the document.
func (s *Session) disambiguate(order []int, resolved map[int][]resolvedItem) map[string]string {
	type group struct {
		keys []string
		seen map[string]bool
	}
	groups := make(map[string]*group)
	for _, i := range order {
		for _, r := range resolved[i] {
			label := s.proc.Label(r.data)
			g := groups[label]
			if g == nil {
				g = &group{seen: make(map[string]bool)}
				groups[label] = g
			}
			if !g.seen[r.key] {
				g.seen[r.key] = true
				g.keys = append(g.keys, r.key)
			}
		}
	}

	suffixes := make(map[string]string)
	for _, g := range groups {
		if len(g.keys) < 2 {
			continue
		}
		for n, key := range g.keys {
			suffixes[key] = s.proc.Suffix(n)
		}
	}
	return suffixes
}

func (s *Session) cites(items []resolvedItem, suffixes map[string]string) []processor.Cite {
	cites := make([]processor.Cite, len(items))
	for n, r := range items {
		cites[n] = processor.Cite{
			Item:           r.data,
			YearSuffix:     suffixes[r.key],
			Prefix:         r.item.Prefix,
			Suffix:         r.item.Suffix,
			Locator:        r.item.Locator,
			Label:          r.item.Label,
			SuppressAuthor: r.item.SuppressAuthor,
		}
	}
	return cites
}

func (s *Session) planCitation(ctx context.Context, i int, items []resolvedItem, suffixes map[string]string, opts PlanOptions) (fields.Update, error) {
	f := s.fields[i]
	c := s.citations[i]
	target := i == opts.Target

	noteIndex, err := f.NoteIndex(ctx)
	if err != nil {
		return fields.Update{}, fmt.Errorf("note index of field %d: %w", i, err)
	}
	c.Properties.NoteIndex = noteIndex

	out := s.proc.FormatCitation(s.cites(items, suffixes))
	current, err := f.Text(ctx)
	if err != nil {
		return fields.Update{}, fmt.Errorf("text of field %d: %w", i, err)
	}

	// A provisional marker recorded in the code outlives the session that
	// wrote it; the plain text alone cannot show it.
	marked := fields.IsDelayed(c.Properties.FormattedCitation)
	pending := (s.pending[c.CitationID] || marked) && !opts.Delayed
	candidate := target || pending || opts.Force || s.newIndices[i] ||
		out.Rich != c.Properties.FormattedCitation
	needsText := target || pending || current != out.Plain

	writeText := false
	if candidate && needsText {
		switch {
		case target:
			writeText = true
		case c.Properties.DontUpdate:
		case !opts.Delayed && c.Properties.PlainCitation != "" && current != c.Properties.PlainCitation:
			keep, err := s.confirmKeep(ctx, i, c.Properties.PlainCitation, current)
			if err != nil {
				return fields.Update{}, err
			}
			if keep {
				c.Properties.DontUpdate = true
			} else {
				writeText = true
			}
		default:
			writeText = true
		}
	}
	if writeText {
		c.Properties.FormattedCitation = out.Rich
		if opts.Delayed {
			c.Properties.FormattedCitation = fields.DelayedMarker(out.Rich)
		}
		c.Properties.PlainCitation = out.Plain
	}

	code, err := c.Serialize()
	if err != nil {
		return fields.Update{}, err
	}
	return fields.Update{
		Index:     i,
		Key:       c.CitationID,
		Field:     f.Field,
		Code:      code,
		WriteCode: code != f.Code,
		Text:      out.Rich,
		Rich:      out.Rich != out.Plain,
		WriteText: writeText,
		Target:    target,
	}, nil
}

func (s *Session) confirmKeep(ctx context.Context, i int, original, current string) (bool, error) {
	answer, err := s.doc.DisplayAlert(ctx, fmt.Sprintf(ModifiedPrompt, original, current), host.IconCaution, host.ButtonsYesNo)
	if err != nil {
		return false, fmt.Errorf("confirm modified citation: %w", err)
	}
	keep := answer == host.ResultYes
	slog.Info("modified citation",
		"doc_id", s.docID,
		"index", i,
		"keep", keep,
	)
	return keep, nil
}

func (s *Session) bibliographyEntries(ctx context.Context, order []int, resolved map[int][]resolvedItem, suffixes map[string]string) ([]processor.Entry, error) {
	seen := make(map[string]bool)
	var entries []processor.Entry
	add := func(r resolvedItem) {
		if seen[r.key] {
			return
		}
		seen[r.key] = true
		if s.bibliography.IsOmitted(r.uris) {
			return
		}
		e := processor.Entry{ID: r.key, Item: r.data, YearSuffix: suffixes[r.key]}
		for _, uri := range r.uris {
			if text, ok := s.bibliography.CustomText(uri); ok {
				e.Custom = text
				break
			}
		}
		entries = append(entries, e)
	}

	for _, i := range order {
		for _, r := range resolved[i] {
			add(r)
		}
	}
	for _, uris := range s.bibliography.Uncited {
		r, ok, err := s.resolveURIs(ctx, uris)
		if err != nil {
			return nil, err
		}
		if !ok {
			slog.Warn("uncited bibliography item not found", "doc_id", s.docID, "uris", uris)
			continue
		}
		add(r)
	}
	return entries, nil
}

func (s *Session) planBibliography(ctx context.Context, order []int, resolved map[int][]resolvedItem, suffixes map[string]string, opts PlanOptions) ([]fields.Update, error) {
	if !s.proc.HasBibliography() {
		slog.Warn("style has no bibliography", "doc_id", s.docID, "style", s.style.ID)
		return nil, nil
	}

	entries, err := s.bibliographyEntries(ctx, order, resolved, suffixes)
	if err != nil {
		return nil, err
	}
	res := s.proc.Bibliography(entries)
	s.lastBib = &res

	code, err := s.bibliography.Serialize()
	if err != nil {
		return nil, err
	}
	plain, rich := res.Plain(), res.Rich()
	pending := s.pending[fields.BibliographyKey] && !opts.Delayed

	updates := make([]fields.Update, 0, len(s.bibIndices))
	for _, i := range s.bibIndices {
		f := s.fields[i]
		current, err := f.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("text of field %d: %w", i, err)
		}
		updates = append(updates, fields.Update{
			Index:     i,
			Key:       fields.BibliographyKey,
			Field:     f.Field,
			Code:      code,
			WriteCode: code != f.Code,
			Text:      rich,
			Rich:      true,
			WriteText: pending || current != plain,
			Target:    i == opts.Target,
		})
	}
	return updates, nil
}
