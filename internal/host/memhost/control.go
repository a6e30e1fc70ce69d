package memhost

import "github.com/roach88/citesync/internal/host"

// The methods below simulate the person at the keyboard. None of them are
// recorded as capability calls.

// SetData replaces the stored document data.
func (d *Document) SetData(data string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = data
}

// Data returns the stored document data.
func (d *Document) Data() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

// Len returns the number of fields.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fields)
}

// FieldAt returns the field at document position i.
func (d *Document) FieldAt(i int) *Field {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields[i]
}

// IndexOf returns the document position of f, or -1.
func (d *Document) IndexOf(f *Field) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexOf(f)
}

// AppendField adds a field at the end as if pasted.
func (d *Document) AppendField(code, text string) *Field {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := &Field{doc: d, code: code, text: text}
	d.fields = append(d.fields, f)
	return f
}

// SetCursor places the cursor in f; nil moves it out of every field.
func (d *Document) SetCursor(f *Field) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = f
}

// SetCanInsert controls CanInsertField and InsertField.
func (d *Document) SetCanInsert(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.canInsert = ok
}

// SetInsertAt makes InsertField insert at position i; -1 appends.
func (d *Document) SetInsertAt(i int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insertAt = i
}

// QueueAnswers scripts the next DisplayAlert results in order.
func (d *Document) QueueAnswers(answers ...int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.answers = append(d.answers, answers...)
}

// SetDefaultAnswer sets the result used once queued answers run out.
func (d *Document) SetDefaultAnswer(a int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.defaultAnswer = a
}

// Calls returns the recorded capability calls.
func (d *Document) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallsTo returns the recorded calls of one method.
func (d *Document) CallsTo(method string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Alerts returns the recorded alerts.
func (d *Document) Alerts() []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Alert(nil), d.alerts...)
}

// ResetRecording clears recorded calls and alerts.
func (d *Document) ResetRecording() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
	d.alerts = nil
}

// BibliographyStyle returns the last style set, or nil.
func (d *Document) BibliographyStyle() *host.BibliographyStyle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bibStyle
}

// Edit replaces the visible text as a user typing would.
func (f *Field) Edit(text string) {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	f.text = text
	f.rich = false
}

// Overwrite replaces both code and text, as pasting over a field would.
func (f *Field) Overwrite(code, text string) {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	f.code = code
	f.text = text
	f.rich = false
}

// RawCode returns the code without recording a call.
func (f *Field) RawCode() string {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	return f.code
}

// PlainText returns the visible text without recording a call.
func (f *Field) PlainText() string {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	if f.rich {
		return StripRTF(f.text)
	}
	return f.text
}

// RawText returns the text as last written, including rich markup.
func (f *Field) RawText() string {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	return f.text
}

// Deleted reports whether Delete was called.
func (f *Field) Deleted() bool {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	return f.deleted
}

// NoteType returns the note type the field was inserted or converted with.
func (f *Field) NoteType() int {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	return f.noteType
}
