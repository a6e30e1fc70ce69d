package integration

import (
	"context"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/fields"
	"github.com/roach88/citesync/internal/session"
)

// addBibliography inserts a bibliography field at the cursor and renders
// it. No dialog is shown.
func (e *execution) addBibliography(ctx context.Context) error {
	if !e.sess.Processor().HasBibliography() {
		return &Error{Code: ErrCodeNoBibliography, Message: "the current style does not define a bibliography"}
	}
	data := e.sess.Data()
	ok, err := e.doc.CanInsertField(ctx, data.Prefs.FieldType)
	if err != nil {
		return hostError("check insertion point", err)
	}
	if !ok {
		return &Error{Code: ErrCodeCannotInsert, Message: "a bibliography cannot be inserted here"}
	}

	hf, err := e.doc.InsertField(ctx, data.Prefs.FieldType, 0)
	if err != nil {
		return hostError("insert field", err)
	}
	e.placeholder = hf
	e.inserted++
	if err := hf.SetCode(ctx, citation.BibliographyPrefix); err != nil {
		return hostError("mark bibliography", err)
	}
	if err := e.sess.LoadFields(ctx); err != nil {
		return hostError("load fields", err)
	}

	i := e.sess.IndexOf(hf)
	if i < 0 {
		return hostError("insert field", errPlaceholderLost)
	}
	if err := e.update(ctx, session.PlanOptions{Target: i, Delayed: data.Prefs.DelayCitationUpdates}); err != nil {
		return err
	}
	e.placeholder = nil
	return nil
}

// editBibliography lets the user add uncited works, omit or restore
// entries and replace entry text.
func (e *execution) editBibliography(ctx context.Context) error {
	if !e.sess.HasBibliography() {
		return &Error{Code: ErrCodeNoBibliography, Message: "the document has no bibliography"}
	}
	rows, err := e.sess.BibliographyRows(ctx)
	if err != nil {
		return err
	}

	io := &dialog.EditBibliographyIO{Entries: rows, Custom: make(map[string]string)}
	if err := e.dialogs.Display(ctx, e.doc, dialog.EditBibliography, io); err != nil {
		return err
	}
	if err := e.sess.ApplyBibliographyEdits(ctx, io); err != nil {
		return err
	}
	e.log.Info("bibliography edited",
		"added", len(io.Add),
		"omitted", len(io.Omit),
		"restored", len(io.Restore),
		"custom", len(io.Custom),
	)
	return e.update(ctx, session.PlanOptions{Target: -1})
}

// removeCodes turns every citation and bibliography into plain text after
// confirmation.
func (e *execution) removeCodes(ctx context.Context) error {
	if err := e.confirm(ctx, RemoveCodesPrompt); err != nil {
		return err
	}
	all := append(e.sess.CitationFields(), e.sess.BibliographyFields()...)
	n, err := fields.NewWriter(fields.Immediate, e.sess).RemoveCodes(ctx, all)
	e.stats.Codes += n
	if err != nil {
		return hostError("remove codes", err)
	}
	e.log.Info("field codes removed", "count", n)
	return nil
}
