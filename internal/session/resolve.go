package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/refdb"
)

// resolvedItem is a cited item together with the data it renders from.
type resolvedItem struct {
	// key identifies the work for disambiguation and the bibliography.
	key  string
	uris []string
	item citation.Item
	data csl.Item
}

// lookup finds an item by its URIs first, then by id.
func (s *Session) lookup(ctx context.Context, id int64, uris []string) (refdb.Item, bool, error) {
	for _, uri := range uris {
		it, err := s.db.ItemByURI(ctx, uri)
		if err == nil {
			return it, true, nil
		}
		if !errors.Is(err, refdb.ErrNotFound) {
			return refdb.Item{}, false, err
		}
	}
	if id != 0 {
		it, err := s.db.ItemByID(ctx, id)
		if err == nil {
			return it, true, nil
		}
		if !errors.Is(err, refdb.ErrNotFound) {
			return refdb.Item{}, false, err
		}
	}
	return refdb.Item{}, false, nil
}

// resolveCitation looks up every item of c, refreshing the id, URIs and
// embedded itemData of items found in the database. Items that cannot be
// found render from their embedded itemData when present and are dropped
// otherwise; either way they are recorded on c.Unresolved.
func (s *Session) resolveCitation(ctx context.Context, c *citation.Citation) ([]resolvedItem, error) {
	c.Unresolved = nil
	out := make([]resolvedItem, 0, len(c.Items))

	for n := range c.Items {
		it := &c.Items[n]
		found, ok, err := s.lookup(ctx, it.ID, it.URIs)
		if err != nil {
			return nil, fmt.Errorf("resolve citation %s: %w", c.CitationID, err)
		}

		if ok {
			it.ID = found.ID
			if len(it.URIs) == 0 {
				it.URIs = []string{found.URI}
			}
			data, err := found.Data.Marshal()
			if err != nil {
				return nil, err
			}
			if !bytes.Equal(it.ItemData, data) {
				it.ItemData = data
			}
			out = append(out, resolvedItem{
				key:  strconv.FormatInt(found.ID, 10),
				uris: it.URIs,
				item: *it,
				data: found.Data,
			})
			continue
		}

		miss := citation.UnresolvedItemError{CitationID: c.CitationID, ItemID: it.ID, URIs: it.URIs}
		if len(it.ItemData) > 0 {
			if data, err := csl.Parse(it.ItemData); err == nil {
				miss.Embedded = true
				out = append(out, resolvedItem{
					key:  embeddedKey(c.CitationID, n, it),
					uris: it.URIs,
					item: *it,
					data: data,
				})
			}
		}
		slog.Warn("citation item not found",
			"doc_id", s.docID,
			"citation_id", c.CitationID,
			"item_id", it.ID,
			"embedded", miss.Embedded,
		)
		c.Unresolved = append(c.Unresolved, miss)
	}
	return out, nil
}

func embeddedKey(citationID string, n int, it *citation.Item) string {
	if len(it.URIs) > 0 {
		return it.URIs[0]
	}
	return citationID + "#" + strconv.Itoa(n)
}

// citationOrder returns citation indices in document order.
func (s *Session) citationOrder() []int {
	order := make([]int, 0, len(s.citations))
	for i := range s.citations {
		order = append(order, i)
	}
	sort.Ints(order)
	return order
}

// resolveAll resolves every citation and collects unresolved items.
func (s *Session) resolveAll(ctx context.Context) ([]int, map[int][]resolvedItem, error) {
	s.unresolved = nil
	order := s.citationOrder()
	resolved := make(map[int][]resolvedItem, len(order))
	for _, i := range order {
		c := s.citations[i]
		items, err := s.resolveCitation(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		resolved[i] = items
		s.unresolved = append(s.unresolved, c.Unresolved...)
	}
	return order, resolved, nil
}

// resolveURIs resolves a bibliography uncited entry.
func (s *Session) resolveURIs(ctx context.Context, uris []string) (resolvedItem, bool, error) {
	found, ok, err := s.lookup(ctx, 0, uris)
	if err != nil || !ok {
		return resolvedItem{}, false, err
	}
	return resolvedItem{
		key:  strconv.FormatInt(found.ID, 10),
		uris: uris,
		item: citation.Item{ID: found.ID, URIs: uris},
		data: found.Data,
	}, true, nil
}

// Preview renders c on its own, without disambiguation against the rest of
// the document. Citation dialogs call it before accepting.
func (s *Session) Preview(ctx context.Context, c *citation.Citation) (string, error) {
	if s.proc == nil {
		return "", fmt.Errorf("preview: no style")
	}
	items, err := s.resolveCitation(ctx, c)
	if err != nil {
		return "", err
	}
	return s.proc.FormatCitation(s.cites(items, nil)).Plain, nil
}
