package memhost

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/host"
)

func TestDocument_InsertField(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()

	f, err := d.InsertField(ctx, "Field", 0)
	require.NoError(t, err)
	text, err := f.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderText, text)
	code, err := f.Code(ctx)
	require.NoError(t, err)
	assert.Empty(t, code)
	assert.Equal(t, 1, d.Len())
}

func TestDocument_InsertAt(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	a := d.AppendField("A", "a")
	b := d.AppendField("B", "b")

	d.SetInsertAt(1)
	f, err := d.InsertField(ctx, "Field", 0)
	require.NoError(t, err)

	assert.Equal(t, 0, d.IndexOf(a))
	assert.Equal(t, 1, d.IndexOf(f.(*Field)))
	assert.Equal(t, 2, d.IndexOf(b))
}

func TestDocument_CannotInsert(t *testing.T) {
	d := NewDocument()
	d.SetCanInsert(false)

	ok, err := d.CanInsertField(context.Background(), "Field")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = d.InsertField(context.Background(), "Field", 0)
	assert.Error(t, err)
}

func TestDocument_Cursor(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	f := d.AppendField("c", "t")

	got, err := d.CursorInField(ctx, "Field")
	require.NoError(t, err)
	assert.Nil(t, got)

	d.SetCursor(f)
	got, err = d.CursorInField(ctx, "Field")
	require.NoError(t, err)
	assert.True(t, f.Equals(got))

	require.NoError(t, f.Delete(ctx))
	got, err = d.CursorInField(ctx, "Field")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, d.Len())
	assert.True(t, f.Deleted())
}

func TestDocument_RecordsFieldWrites(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	a := d.AppendField("", "")
	b := d.AppendField("", "")

	require.NoError(t, a.SetText(ctx, "x", false))
	require.NoError(t, b.SetCode(ctx, "y"))
	require.NoError(t, b.RemoveCode(ctx))

	calls := d.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "SetText", calls[0].Method)
	assert.Same(t, a, calls[0].Field)
	assert.Equal(t, []any{"x", false}, calls[0].Args)
	assert.Same(t, b, calls[1].Field)
	assert.Len(t, d.CallsTo("RemoveCode"), 1)
	assert.Empty(t, b.RawCode())

	d.ResetRecording()
	assert.Empty(t, d.Calls())
}

func TestDocument_RichTextIsReadPlain(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	f := d.AppendField("", "")

	require.NoError(t, f.SetText(ctx, `{\uldash (Smith, 2019)}`, true))
	text, err := f.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "(Smith, 2019)", text)
	assert.Equal(t, `{\uldash (Smith, 2019)}`, f.RawText())
}

func TestDocument_DisplayAlertAnswers(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	d.QueueAnswers(host.ResultYes)
	d.SetDefaultAnswer(host.ResultNo)

	a, err := d.DisplayAlert(ctx, "first", host.IconCaution, host.ButtonsYesNo)
	require.NoError(t, err)
	assert.Equal(t, host.ResultYes, a)

	a, err = d.DisplayAlert(ctx, "second", host.IconCaution, host.ButtonsYesNo)
	require.NoError(t, err)
	assert.Equal(t, host.ResultNo, a)

	alerts := d.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, "first", alerts[0].Text)
}

func TestDocument_ConvertAndNoteIndex(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	a := d.AppendField("", "")
	b := d.AppendField("", "")

	require.NoError(t, d.Convert(ctx, []host.Field{a, b}, "Bookmark", []int{1, 1}))
	n, err := b.NoteIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Error(t, d.Convert(ctx, []host.Field{a}, "Field", nil))
}

func TestApplication_Documents(t *testing.T) {
	ctx := context.Background()
	app := NewApplication()

	_, err := app.ActiveDocument(ctx)
	assert.Error(t, err)

	doc, err := app.Document(ctx, "d1")
	require.NoError(t, err)
	assert.Same(t, app.Doc("d1"), doc)

	active, err := app.ActiveDocument(ctx)
	require.NoError(t, err)
	assert.Same(t, doc, active)
}

func TestFile_SaveLoad(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	d.SetData(`{"dataVersion":4}`)
	d.AppendField("ITEM CSL_CITATION {}", "(A, 2000)")
	f := d.AppendField("BIBL", "")
	require.NoError(t, f.SetText(ctx, `{\rtf A. 2000.}`, true))
	d.SetCursor(f)
	d.SetInsertAt(1)

	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, d.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, d.ToFile(), loaded.ToFile())

	cursor, err := loaded.CursorInField(ctx, "Field")
	require.NoError(t, err)
	text, err := cursor.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A. 2000.", text)
}

func TestFile_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, writeFile(path, "data: x\nfeilds: []\n"))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFromFile_CursorOutOfRange(t *testing.T) {
	bad := 3
	_, err := FromFile(File{Cursor: &bad})
	assert.Error(t, err)
}

func TestStripRTF(t *testing.T) {
	tests := map[string]string{
		`plain`:                   "plain",
		`{\rtf {\i Title} text}`:  "Title text",
		`a\{b\}c\\d`:              `a{b}c\d`,
		`{\uldash x}`:             "x",
		`em\u8212?dash`:          "em\u2014dash",
		`{\fs24\b bold}`:          "bold",
		`a\par b`:                 "a\nb",
		`trailing\`:               "trailing",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripRTF(in), in)
	}
}
