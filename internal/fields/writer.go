// Package fields pushes rendered citations and bibliographies back into the
// document through the host capability interface.
package fields

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/citesync/internal/host"
)

// BibliographyKey is the pending-set key for bibliography fields.
const BibliographyKey = "bibliography"

// Mode selects how updates reach the document.
type Mode int

const (
	// Immediate writes every scheduled field.
	Immediate Mode = iota
	// Delayed writes only the edit target, marked as provisional, and
	// defers the rest.
	Delayed
)

func (m Mode) String() string {
	if m == Delayed {
		return "delayed"
	}
	return "immediate"
}

// Update is the planned new state of one field.
type Update struct {
	Index int
	// Key identifies the field across commands: the citation id, or
	// BibliographyKey.
	Key   string
	Field host.Field

	Code      string
	WriteCode bool

	Text      string
	Rich      bool
	WriteText bool

	// Target is the field the user is editing.
	Target bool
}

// Changed reports whether the update writes anything.
func (u Update) Changed() bool {
	return u.WriteCode || u.WriteText
}

// Pending records fields whose update was deferred.
type Pending interface {
	MarkPending(key string)
	ClearPending()
}

// Stats counts what a Write did.
type Stats struct {
	Codes    int
	Texts    int
	Deferred int
}

// Writes is the number of capability calls made.
func (s Stats) Writes() int {
	return s.Codes + s.Texts
}

// Writer applies updates.
type Writer struct {
	mode    Mode
	pending Pending
}

// NewWriter returns a writer. pending may be nil in immediate mode.
func NewWriter(mode Mode, pending Pending) *Writer {
	return &Writer{mode: mode, pending: pending}
}

// DelayedMarker wraps rich text in the provisional-update underline.
func DelayedMarker(rich string) string {
	return "{\\uldash " + rich + "}"
}

// IsDelayed reports whether rich was written with DelayedMarker.
func IsDelayed(rich string) bool {
	return strings.HasPrefix(rich, "{\\uldash ") && strings.HasSuffix(rich, "}")
}

// Write applies updates in order. In immediate mode a successful write
// clears the pending set.
func (w *Writer) Write(ctx context.Context, updates []Update) (Stats, error) {
	var stats Stats
	for _, u := range updates {
		if !u.Changed() {
			continue
		}
		if w.mode == Delayed && !u.Target {
			if w.pending != nil {
				w.pending.MarkPending(u.Key)
			}
			stats.Deferred++
			slog.Debug("field update deferred", "index", u.Index, "key", u.Key)
			continue
		}

		if u.WriteText {
			text, rich := u.Text, u.Rich
			if w.mode == Delayed {
				text, rich = DelayedMarker(text), true
			}
			if err := u.Field.SetText(ctx, text, rich); err != nil {
				return stats, fmt.Errorf("set text of field %d: %w", u.Index, err)
			}
			stats.Texts++
		}
		if u.WriteCode {
			if err := u.Field.SetCode(ctx, u.Code); err != nil {
				return stats, fmt.Errorf("set code of field %d: %w", u.Index, err)
			}
			stats.Codes++
		}
		if w.mode == Delayed && u.WriteText && w.pending != nil {
			// The provisional marker stays until a full write replaces it.
			w.pending.MarkPending(u.Key)
		}
		slog.Debug("field written", "index", u.Index, "key", u.Key, "code", u.WriteCode, "text", u.WriteText)
	}

	if w.mode == Immediate && w.pending != nil {
		w.pending.ClearPending()
	}
	return stats, nil
}

// RemoveCodes turns each field into plain text.
func (w *Writer) RemoveCodes(ctx context.Context, fs []host.Field) (int, error) {
	for i, f := range fs {
		if err := f.RemoveCode(ctx); err != nil {
			return i, fmt.Errorf("remove code: %w", err)
		}
	}
	return len(fs), nil
}

// Discard deletes a placeholder field inserted for a command that did not
// complete.
func (w *Writer) Discard(ctx context.Context, f host.Field) error {
	if f == nil {
		return nil
	}
	if err := f.Delete(ctx); err != nil {
		return fmt.Errorf("delete placeholder: %w", err)
	}
	return nil
}
