// Package integration dispatches word-processor commands to document
// sessions.
//
// Each open document gets one worker goroutine fed by a FIFO queue, so the
// commands for a document run strictly in order while different documents
// proceed concurrently. A command runs to completion on its worker:
// attach the document, read its data, resolve the style, load fields, run
// the command body (which may block in dialogs and prompts), write fields
// and finally save the document data once.
package integration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/refdb"
	"github.com/roach88/citesync/internal/session"
	"github.com/roach88/citesync/internal/store"
	"github.com/roach88/citesync/internal/style"
)

// Command names accepted by Exec.
const (
	AddCitation         = "addCitation"
	EditCitation        = "editCitation"
	AddEditCitation     = "addEditCitation"
	AddBibliography     = "addBibliography"
	EditBibliography    = "editBibliography"
	AddEditBibliography = "addEditBibliography"
	Refresh             = "refresh"
	RemoveCodes         = "removeCodes"
	SetDocPrefs         = "setDocPrefs"
)

// Commands lists every command name in a stable order.
var Commands = []string{
	AddCitation, EditCitation, AddEditCitation,
	AddBibliography, EditBibliography, AddEditBibliography,
	Refresh, RemoveCodes, SetDocPrefs,
}

// ValidCommand reports whether name is a known command.
func ValidCommand(name string) bool {
	for _, c := range Commands {
		if c == name {
			return true
		}
	}
	return false
}

// Journal records completed commands.
type Journal interface {
	NextJournalSeq(ctx context.Context, docID string) (int64, error)
	AppendJournal(ctx context.Context, rec store.JournalRecord) (bool, error)
}

// Interface is the command dispatcher.
type Interface struct {
	app       host.Application
	db        refdb.Database
	styles    *style.Registry
	dialogs   dialog.Displayer
	installer *style.Installer
	journal   Journal
	ids       session.IDGenerator

	citationDialog string
	defaultStyle   string
	idle           time.Duration

	sessions *session.Registry

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers map[string]*commandQueue
	closed  bool
	wg      sync.WaitGroup
}

// Option configures an Interface.
type Option func(*Interface)

// WithInstaller enables installing styles the registry does not have.
func WithInstaller(in *style.Installer) Option {
	return func(i *Interface) {
		i.installer = in
	}
}

// WithJournal records every finished command.
func WithJournal(j Journal) Option {
	return func(i *Interface) {
		i.journal = j
	}
}

// WithIDGenerator sets the generator for session and citation ids.
// Tests use deterministic generators.
func WithIDGenerator(ids session.IDGenerator) Option {
	return func(i *Interface) {
		i.ids = ids
	}
}

// WithCitationDialog selects the dialog used to pick cited items, either
// dialog.QuickFormat (the default) or dialog.SelectItems.
func WithCitationDialog(name string) Option {
	return func(i *Interface) {
		i.citationDialog = name
	}
}

// WithDefaultStyle preselects the style offered to documents without data.
func WithDefaultStyle(styleID string) Option {
	return func(i *Interface) {
		i.defaultStyle = styleID
	}
}

// WithSessionIdle discards a document's session after it has seen no
// command for d. Zero keeps sessions until Close.
func WithSessionIdle(d time.Duration) Option {
	return func(i *Interface) {
		i.idle = d
	}
}

// New creates a dispatcher.
func New(app host.Application, db refdb.Database, styles *style.Registry, dialogs dialog.Displayer, opts ...Option) *Interface {
	i := &Interface{
		app:            app,
		db:             db,
		styles:         styles,
		dialogs:        dialogs,
		ids:            session.UUIDGenerator{},
		citationDialog: dialog.QuickFormat,
		workers:        make(map[string]*commandQueue),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.ctx, i.cancel = context.WithCancel(context.Background())
	i.sessions = session.NewRegistry(i.idle, func(docID string) *session.Session {
		return session.New(docID, i.db, i.ids)
	})
	return i
}

// Exec runs command against the document docID and blocks until it has
// finished. Commands for the same document are queued behind each other.
func (i *Interface) Exec(ctx context.Context, command, docID string) error {
	if docID == "" {
		return &Error{Code: ErrCodeMissingDocumentID, Message: "no document id", Command: command}
	}
	if !ValidCommand(command) {
		return &Error{Code: ErrCodeInvalidCommand, Message: "unknown command " + command, DocID: docID, Command: command}
	}

	req := &request{ctx: ctx, command: command, docID: docID, done: make(chan error, 1)}
	for {
		q, err := i.queueFor(docID)
		if err != nil {
			return err
		}
		if q.Enqueue(req) {
			break
		}
		// The document was closed between lookup and enqueue; a fresh
		// worker takes the command.
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Interface) queueFor(docID string) (*commandQueue, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil, &Error{Code: ErrCodeClosed, Message: "dispatcher closed", DocID: docID}
	}
	if q, ok := i.workers[docID]; ok {
		return q, nil
	}
	q := newCommandQueue()
	i.workers[docID] = q
	i.wg.Add(1)
	go i.work(q)
	slog.Debug("document worker started", "doc_id", docID)
	return q, nil
}

// work is the worker loop for one document. It returns once the queue is
// closed and drained.
func (i *Interface) work(q *commandQueue) {
	defer i.wg.Done()
	defer close(q.stopped)

	for {
		if req, ok := q.TryDequeue(); ok {
			if i.ctx.Err() != nil {
				req.done <- i.closedError(req)
				continue
			}
			req.done <- i.execute(req)
			continue
		}

		select {
		case <-i.ctx.Done():
			q.Close()
			for {
				req, ok := q.TryDequeue()
				if !ok {
					return
				}
				req.done <- i.closedError(req)
			}
		case <-q.Wait():
			if q.Closed() && q.Len() == 0 {
				return
			}
		}
	}
}

func (i *Interface) closedError(req *request) error {
	return &Error{Code: ErrCodeClosed, Message: "dispatcher closed", DocID: req.docID, Command: req.command}
}

// Session returns the live session of docID, if any.
func (i *Interface) Session(docID string) (*session.Session, bool) {
	return i.sessions.Lookup(docID)
}

// CloseDocument tears down docID: commands already queued for it still
// run, then its worker exits and its session is dropped. The next command
// for docID starts a new worker and session.
func (i *Interface) CloseDocument(docID string) {
	i.mu.Lock()
	q, ok := i.workers[docID]
	if ok {
		delete(i.workers, docID)
		q.Close()
	}
	i.mu.Unlock()

	if ok {
		<-q.stopped
	}
	i.sessions.Discard(docID)
	slog.Debug("document closed", "doc_id", docID)
}

// Close stops every document worker and drops all sessions. Queued
// commands fail with CLOSED. Close waits for running commands to return.
func (i *Interface) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	for _, q := range i.workers {
		q.Close()
	}
	i.mu.Unlock()

	i.cancel()
	i.wg.Wait()
	i.sessions.Close()
	slog.Debug("dispatcher closed")
}
