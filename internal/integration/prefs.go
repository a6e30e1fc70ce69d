package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/docdata"
	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/session"
	"github.com/roach88/citesync/internal/style"
)

// StyleInstallPrompt asks before installing a style from an untrusted
// origin.
const StyleInstallPrompt = "This document uses the style %s, which is not installed. " +
	"Install it from its source?"

// loadStyle gives the session the style named in the document data,
// installing it or asking for another one when it is missing.
func (e *execution) loadStyle(ctx context.Context) error {
	id := e.sess.Data().Style.StyleID
	if id == "" {
		_, err := e.docPrefs(ctx)
		return err
	}

	st, err := e.styles.Get(id)
	if errors.Is(err, style.ErrNotFound) {
		st, err = e.installStyle(ctx, id)
	}
	if err != nil {
		return err
	}
	e.sess.SetStyle(st)
	return nil
}

func (e *execution) installStyle(ctx context.Context, id string) (*style.Style, error) {
	if e.installer == nil {
		return nil, &Error{Code: ErrCodeStyleNotFound, Message: fmt.Sprintf("style %s is not installed", id), Err: style.ErrNotFound}
	}

	if !e.installer.Trusted(id) {
		answer, err := e.doc.DisplayAlert(ctx, fmt.Sprintf(StyleInstallPrompt, id), host.IconCaution, host.ButtonsYesNo)
		if err != nil {
			return nil, hostError("display alert", err)
		}
		if answer != host.ResultYes {
			e.log.Info("style install declined", "style_id", id)
			if _, err := e.docPrefs(ctx); err != nil {
				return nil, err
			}
			return e.sess.Style(), nil
		}
	}

	st, err := e.installer.Install(ctx, id)
	if err != nil {
		return nil, &Error{Code: ErrCodeStyleNotFound, Message: fmt.Sprintf("style %s could not be installed", id), Err: err}
	}
	return st, nil
}

// docPrefs shows the document preferences dialog and applies the answer.
// It reports whether the field type or note type changed.
func (e *execution) docPrefs(ctx context.Context) (bool, error) {
	data := e.sess.Data()
	io := &dialog.DocPrefsIO{
		StyleID:                       data.Style.StyleID,
		Locale:                        data.Style.Locale,
		FieldType:                     data.Prefs.FieldType,
		NoteType:                      data.Prefs.NoteType,
		AutomaticJournalAbbreviations: data.Prefs.AutomaticJournalAbbreviations,
		DelayCitationUpdates:          data.Prefs.DelayCitationUpdates,
		SupportedNotes:                e.app.SupportedNotes(),
	}
	for _, st := range e.styles.List() {
		io.Styles = append(io.Styles, dialog.StyleChoice{ID: st.ID, Title: st.Title})
	}

	if err := e.dialogs.Display(ctx, e.doc, dialog.DocPrefs, io); err != nil {
		return false, err
	}
	e.configured = true

	st, err := e.styles.Get(io.StyleID)
	if err != nil {
		return false, &Error{Code: ErrCodeStyleNotFound, Message: fmt.Sprintf("style %s is not installed", io.StyleID), Err: err}
	}

	fieldType := data.Prefs.FieldType
	if io.FieldType != "" {
		fieldType = io.FieldType
	}
	noteType := io.NoteType
	if st.IsNote() && noteType == docdata.NoteTypeNone {
		noteType = docdata.NoteTypeFootnote
	}
	if !st.IsNote() {
		noteType = docdata.NoteTypeNone
	}
	changed := fieldType != data.Prefs.FieldType || noteType != data.Prefs.NoteType

	data.Prefs.FieldType = fieldType
	data.Prefs.NoteType = noteType
	data.Prefs.AutomaticJournalAbbreviations = io.AutomaticJournalAbbreviations
	data.Prefs.DelayCitationUpdates = io.DelayCitationUpdates
	if io.Locale != "" {
		data.Style.Locale = io.Locale
	}
	e.sess.SetStyle(st)

	e.log.Info("document preferences set",
		"style_id", st.ID,
		"locale", data.Style.Locale,
		"field_type", fieldType,
		"note_type", noteType,
	)
	return changed, nil
}

// setDocPrefs changes document preferences, converts existing fields when
// their kind changed and re-renders everything.
func (e *execution) setDocPrefs(ctx context.Context) error {
	data := e.sess.Data()
	oldFieldType := data.Prefs.FieldType

	if !e.configured {
		changed, err := e.docPrefs(ctx)
		if err != nil {
			return err
		}
		if changed {
			if err := e.convert(ctx, oldFieldType); err != nil {
				return err
			}
		}
	}
	return e.update(ctx, session.PlanOptions{Target: -1, Force: true})
}

// convert moves every loaded field to the current field type and note type.
// Fields were loaded with oldFieldType; they are reloaded afterwards.
func (e *execution) convert(ctx context.Context, oldFieldType string) error {
	cites := e.sess.CitationFields()
	bibs := e.sess.BibliographyFields()
	all := make([]host.Field, 0, len(cites)+len(bibs))
	noteTypes := make([]int, 0, len(cites)+len(bibs))
	noteType := e.sess.Data().Prefs.NoteType
	for _, f := range cites {
		all = append(all, f)
		noteTypes = append(noteTypes, noteType)
	}
	for _, f := range bibs {
		all = append(all, f)
		noteTypes = append(noteTypes, docdata.NoteTypeNone)
	}

	if len(all) > 0 {
		fieldType := e.sess.Data().Prefs.FieldType
		if err := e.doc.Convert(ctx, all, fieldType, noteTypes); err != nil {
			return hostError("convert fields", err)
		}
		e.log.Info("fields converted",
			"count", len(all),
			"from", oldFieldType,
			"to", fieldType,
		)
	}
	if err := e.sess.LoadFields(ctx); err != nil {
		return hostError("load fields", err)
	}
	return nil
}
