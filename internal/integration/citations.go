package integration

import (
	"context"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/fields"
	"github.com/roach88/citesync/internal/session"
)

// cursorCitation returns the index of the citation field holding the
// cursor, or -1.
func (e *execution) cursorCitation(ctx context.Context) (int, error) {
	hf, err := e.doc.CursorInField(ctx, e.sess.Data().Prefs.FieldType)
	if err != nil {
		return -1, hostError("find field at cursor", err)
	}
	i := e.sess.IndexOf(hf)
	if i < 0 || e.sess.Citation(i) == nil {
		return -1, nil
	}
	return i, nil
}

func (e *execution) addEditCitation(ctx context.Context) error {
	i, err := e.cursorCitation(ctx)
	if err != nil {
		return err
	}
	if i >= 0 {
		return e.editCitationAt(ctx, i)
	}
	return e.addCitation(ctx)
}

func (e *execution) editCitation(ctx context.Context) error {
	i, err := e.cursorCitation(ctx)
	if err != nil {
		return err
	}
	if i < 0 {
		return &Error{Code: ErrCodeNotInCitation, Message: "the cursor is not in a citation"}
	}
	return e.editCitationAt(ctx, i)
}

// addCitation inserts a placeholder field at the cursor and fills it from
// the citation dialog.
func (e *execution) addCitation(ctx context.Context) error {
	data := e.sess.Data()
	ok, err := e.doc.CanInsertField(ctx, data.Prefs.FieldType)
	if err != nil {
		return hostError("check insertion point", err)
	}
	if !ok {
		return &Error{Code: ErrCodeCannotInsert, Message: "a citation cannot be inserted here"}
	}

	hf, err := e.doc.InsertField(ctx, data.Prefs.FieldType, data.Prefs.NoteType)
	if err != nil {
		return hostError("insert field", err)
	}
	e.placeholder = hf
	e.inserted++
	if err := hf.SetCode(ctx, citation.TempCode); err != nil {
		return hostError("mark placeholder", err)
	}
	if err := e.sess.LoadFields(ctx); err != nil {
		return hostError("load fields", err)
	}

	i := e.sess.IndexOf(hf)
	if i < 0 {
		return hostError("insert field", errPlaceholderLost)
	}
	e.log.Debug("placeholder inserted", "index", i)
	return e.fillCitation(ctx, i, e.sess.NewCitation(), nil)
}

// editCitationAt reopens the citation dialog on an existing citation. A
// citation whose text was changed by hand is only edited after the user
// agrees to lose the change.
func (e *execution) editCitationAt(ctx context.Context, i int) error {
	c := e.sess.Citation(i)
	text, err := e.sess.Fields()[i].Text(ctx)
	if err != nil {
		return hostError("read field text", err)
	}
	orig := c
	if c.Properties.DontUpdate || (c.Properties.PlainCitation != "" && text != c.Properties.PlainCitation) {
		if err := e.confirm(ctx, EditModifiedPrompt); err != nil {
			return err
		}
		orig = nil
	}
	return e.fillCitation(ctx, i, c.Clone(), orig)
}

// fillCitation runs the citation dialog on c and writes the result to the
// field at index i. An edited citation left without items is deleted. When
// orig is set and the dialog kept its items, the field is left as it is.
func (e *execution) fillCitation(ctx context.Context, i int, c, orig *citation.Citation) error {
	if err := e.showCitationDialog(ctx, c); err != nil {
		return err
	}

	if len(c.Items) == 0 {
		if e.placeholder != nil {
			return &Error{Code: ErrCodeUserCancelled, Message: "no items selected", Err: dialog.ErrCancelled}
		}
		e.log.Info("citation emptied", "index", i, "citation_id", c.CitationID)
		if err := fields.NewWriter(fields.Immediate, e.sess).Discard(ctx, e.sess.Fields()[i].Field); err != nil {
			return hostError("delete field", err)
		}
		if err := e.sess.LoadFields(ctx); err != nil {
			return hostError("load fields", err)
		}
		return e.update(ctx, session.PlanOptions{Target: -1})
	}

	delayed := e.sess.Data().Prefs.DelayCitationUpdates
	if orig != nil && citation.ItemsEqual(orig.Items, c.Items) {
		e.log.Debug("citation unchanged", "index", i, "citation_id", c.CitationID)
		return e.update(ctx, session.PlanOptions{Target: -1, Delayed: delayed})
	}

	c.Properties.DontUpdate = false
	e.sess.SetCitation(i, c)
	e.log.Debug("citation set", "index", i, "citation_id", c.CitationID, "items", len(c.Items))

	if err := e.update(ctx, session.PlanOptions{Target: i, Delayed: delayed}); err != nil {
		return err
	}
	e.placeholder = nil
	return nil
}

func (e *execution) showCitationDialog(ctx context.Context, c *citation.Citation) error {
	if e.citationDialog == dialog.SelectItems {
		io := &dialog.SelectItemsIO{ItemIDs: c.ItemIDs()}
		if err := e.dialogs.Display(ctx, e.doc, dialog.SelectItems, io); err != nil {
			return err
		}
		c.Items = keepItems(c.Items, io.ItemIDs)
		return nil
	}
	return e.dialogs.Display(ctx, e.doc, dialog.QuickFormat, &dialog.CitationIO{Citation: c, Preview: e.sess.Preview})
}

// keepItems returns the items for ids in order, reusing the existing entry
// (and its locator, prefix and suffix) for ids already cited.
func keepItems(items []citation.Item, ids []int64) []citation.Item {
	out := make([]citation.Item, 0, len(ids))
	for _, id := range ids {
		item := citation.Item{ID: id}
		for _, it := range items {
			if it.ID == id {
				item = it
				break
			}
		}
		out = append(out, item)
	}
	return out
}
