package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/docdata"
	"github.com/roach88/citesync/internal/fields"
	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/session"
	"github.com/roach88/citesync/internal/store"
)

// Journal statuses.
const (
	StatusOK        = "ok"
	StatusCancelled = "cancelled"
	StatusFailed    = "error"
)

// Prompts shown by commands.
const (
	EditModifiedPrompt = "You have modified this citation since it was generated. " +
		"Editing it will discard your modification. Continue?"
	RemoveCodesPrompt = "Removing field codes will keep the current text but " +
		"the citations can no longer be updated. Continue?"
	UnresolvedPrompt = "Some cited items could not be found in your library:\n\n%s"
)

// execution is the state of one running command.
type execution struct {
	*Interface
	command string
	docID   string
	doc     host.Document
	sess    *session.Session
	log     *slog.Logger

	// placeholder is the field inserted by this command, removed again if
	// the command does not complete.
	placeholder host.Field
	stats       fields.Stats
	inserted    int
	// configured is set when the document prefs dialog already ran.
	configured bool
}

func (i *Interface) execute(req *request) error {
	ctx := req.ctx
	if err := ctx.Err(); err != nil {
		return err
	}

	log := slog.With("doc_id", req.docID, "command", req.command)
	doc, err := i.app.Document(ctx, req.docID)
	if err != nil {
		return &Error{Code: ErrCodeHost, Message: "open document", DocID: req.docID, Command: req.command, Err: err}
	}

	e := &execution{
		Interface: i,
		command:   req.command,
		docID:     req.docID,
		doc:       doc,
		sess:      i.sessions.Get(req.docID),
		log:       log,
	}

	log.Debug("command started")
	err = e.run(ctx)
	err = e.finish(ctx, err)

	if cerr := doc.Cleanup(ctx); cerr != nil {
		log.Warn("document cleanup failed", "error", cerr)
	}
	if cerr := doc.Complete(ctx); cerr != nil {
		log.Warn("document complete failed", "error", cerr)
	}
	return err
}

func (e *execution) run(ctx context.Context) error {
	if err := e.doc.Activate(ctx); err != nil {
		return hostError("activate document", err)
	}
	if err := e.prepare(ctx); err != nil {
		return err
	}

	var err error
	switch e.command {
	case AddCitation:
		err = e.addCitation(ctx)
	case EditCitation:
		err = e.editCitation(ctx)
	case AddEditCitation:
		err = e.addEditCitation(ctx)
	case AddBibliography:
		err = e.addBibliography(ctx)
	case EditBibliography:
		err = e.editBibliography(ctx)
	case AddEditBibliography:
		if e.sess.HasBibliography() {
			err = e.editBibliography(ctx)
		} else {
			err = e.addBibliography(ctx)
		}
	case Refresh:
		err = e.update(ctx, session.PlanOptions{Target: -1, Force: true})
	case RemoveCodes:
		err = e.removeCodes(ctx)
	case SetDocPrefs:
		err = e.setDocPrefs(ctx)
	}
	if err != nil {
		return err
	}

	if err := e.sess.SaveData(ctx); err != nil {
		return hostError("save document data", err)
	}
	return nil
}

// prepare reads the document data, settles the style and loads fields.
func (e *execution) prepare(ctx context.Context) error {
	ok, err := e.sess.Begin(ctx, e.doc)
	if err != nil {
		if errors.Is(err, docdata.ErrMalformed) {
			return &Error{Code: ErrCodeMalformedDocumentData, Message: "the document data is corrupt", Err: err}
		}
		return hostError("read document data", err)
	}
	if !ok {
		data := e.sess.Init()
		data.Style.StyleID = e.defaultStyle
		e.log.Info("new document", "session_id", e.sess.ID())
		if _, err := e.docPrefs(ctx); err != nil {
			return err
		}
	}
	if !e.configured {
		if err := e.loadStyle(ctx); err != nil {
			return err
		}
	}
	if err := e.sess.LoadFields(ctx); err != nil {
		return hostError("load fields", err)
	}
	return nil
}

// finish reports the outcome of a command: it removes an abandoned
// placeholder, alerts the user and writes the journal.
func (e *execution) finish(ctx context.Context, err error) error {
	status := StatusOK
	if err != nil {
		err = e.classify(err)
		status = StatusFailed
		if IsUserCancelled(err) || errors.Is(err, context.Canceled) {
			status = StatusCancelled
		}
		if e.placeholder != nil {
			if derr := fields.NewWriter(fields.Immediate, e.sess).Discard(ctx, e.placeholder); derr != nil {
				e.log.Warn("placeholder not removed", "error", derr)
			} else {
				e.inserted--
			}
		}
	}

	switch status {
	case StatusOK:
		e.log.Info("command completed",
			"codes", e.stats.Codes,
			"texts", e.stats.Texts,
			"deferred", e.stats.Deferred,
		)
		e.reportUnresolved(ctx)
	case StatusCancelled:
		e.log.Info("command cancelled")
	default:
		e.log.Error("command failed", "error", err)
		e.alert(ctx, userMessage(err), host.IconStop, host.ButtonsOK)
	}

	e.record(ctx, status)
	return err
}

// classify turns any error into an *Error carrying the command context.
func (e *execution) classify(err error) error {
	var ie *Error
	if !errors.As(err, &ie) {
		switch {
		case errors.Is(err, dialog.ErrCancelled):
			ie = &Error{Code: ErrCodeUserCancelled, Message: "cancelled", Err: err}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			ie = &Error{Code: ErrCodeHost, Message: "command failed", Err: err}
		}
	}
	if ie.DocID == "" {
		ie.DocID = e.docID
	}
	if ie.Command == "" {
		ie.Command = e.command
	}
	return ie
}

func userMessage(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		if ie.Err != nil && ie.Code == ErrCodeHost {
			return fmt.Sprintf("%s: %v", ie.Message, ie.Err)
		}
		return ie.Message
	}
	return err.Error()
}

func (e *execution) alert(ctx context.Context, text string, icon host.Icon, buttons host.Buttons) int {
	answer, err := e.doc.DisplayAlert(ctx, text, icon, buttons)
	if err != nil {
		e.log.Warn("alert failed", "error", err)
		return host.ResultCancel
	}
	return answer
}

// confirm asks an OK/Cancel question and fails with USER_CANCELLED unless
// the user chose OK.
func (e *execution) confirm(ctx context.Context, text string) error {
	answer, err := e.doc.DisplayAlert(ctx, text, host.IconCaution, host.ButtonsOKCancel)
	if err != nil {
		return hostError("display alert", err)
	}
	if answer != host.ResultOK {
		return &Error{Code: ErrCodeUserCancelled, Message: "cancelled"}
	}
	return nil
}

// reportUnresolved shows one alert listing items the database lacked.
func (e *execution) reportUnresolved(ctx context.Context) {
	missing := e.sess.Unresolved()
	if len(missing) == 0 {
		return
	}
	lines := make([]string, 0, len(missing))
	for k := range missing {
		lines = append(lines, missing[k].Error())
	}
	ue := &Error{
		Code:    ErrCodeUnresolvedItem,
		Message: fmt.Sprintf(UnresolvedPrompt, strings.Join(lines, "\n")),
		DocID:   e.docID,
		Command: e.command,
	}
	e.log.Warn("unresolved citation items", "count", len(missing))
	e.alert(ctx, ue.Message, host.IconCaution, host.ButtonsOK)
}

func (e *execution) record(ctx context.Context, status string) {
	if e.journal == nil {
		return
	}
	seq, err := e.journal.NextJournalSeq(ctx, e.docID)
	if err == nil {
		_, err = e.journal.AppendJournal(ctx, store.JournalRecord{
			DocID:      e.docID,
			Seq:        seq,
			Command:    e.command,
			Status:     status,
			Writes:     e.stats.Writes(),
			Inserted:   e.inserted,
			NewIndices: e.sess.NewIndices(),
		})
	}
	if err != nil {
		e.log.Warn("journal append failed", "error", err)
	}
}

func hostError(msg string, err error) error {
	if errors.Is(err, dialog.ErrCancelled) {
		return err
	}
	return &Error{Code: ErrCodeHost, Message: msg, Err: err}
}

// update plans and writes all fields.
func (e *execution) update(ctx context.Context, opts session.PlanOptions) error {
	updates, err := e.sess.Plan(ctx, opts)
	if err != nil {
		return err
	}
	mode := fields.Immediate
	if opts.Delayed {
		mode = fields.Delayed
	}
	stats, err := fields.NewWriter(mode, e.sess).Write(ctx, updates)
	e.stats.Codes += stats.Codes
	e.stats.Texts += stats.Texts
	e.stats.Deferred += stats.Deferred
	if err != nil {
		return hostError("write fields", err)
	}

	data := e.sess.Data()
	proc := e.sess.Processor()
	if mode == fields.Immediate && e.sess.HasBibliography() && proc.HasBibliography() && !data.Style.BibliographyStyleHasBeenSet {
		if err := e.doc.SetBibliographyStyle(ctx, proc.BibliographyStyle()); err != nil {
			return hostError("set bibliography style", err)
		}
		data.Style.BibliographyStyleHasBeenSet = true
	}
	return nil
}
