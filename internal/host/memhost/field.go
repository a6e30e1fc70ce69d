package memhost

import (
	"context"

	"github.com/roach88/citesync/internal/host"
)

// Field is an in-memory field. Rich text is stored as written and returned
// from Text with its markup removed.
type Field struct {
	doc      *Document
	code     string
	text     string
	rich     bool
	noteType int
	deleted  bool
}

func (f *Field) Text(ctx context.Context) (string, error) {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	if f.rich {
		return StripRTF(f.text), nil
	}
	return f.text, nil
}

func (f *Field) SetText(ctx context.Context, text string, isRich bool) error {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	f.doc.record("SetText", f, text, isRich)
	f.text = text
	f.rich = isRich
	return nil
}

func (f *Field) Code(ctx context.Context) (string, error) {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	return f.code, nil
}

func (f *Field) SetCode(ctx context.Context, code string) error {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	f.doc.record("SetCode", f, code)
	f.code = code
	return nil
}

func (f *Field) Delete(ctx context.Context) error {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	f.doc.record("Delete", f)
	f.deleted = true
	f.doc.remove(f)
	return nil
}

func (f *Field) RemoveCode(ctx context.Context) error {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	f.doc.record("RemoveCode", f)
	f.code = ""
	return nil
}

func (f *Field) Select(ctx context.Context) error {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	f.doc.record("Select", f)
	return nil
}

func (f *Field) Equals(other host.Field) bool {
	o, ok := other.(*Field)
	return ok && o == f
}

func (f *Field) NoteIndex(ctx context.Context) (int, error) {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	if f.noteType == 0 {
		return 0, nil
	}
	// Each note-placed field sits in its own note, numbered in document order.
	n := 0
	for _, g := range f.doc.fields {
		if g.noteType != 0 {
			n++
		}
		if g == f {
			return n, nil
		}
	}
	return 0, nil
}
