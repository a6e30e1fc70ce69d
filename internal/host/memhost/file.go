package memhost

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML form of a document.
type File struct {
	Data      string      `yaml:"data"`
	Cursor    *int        `yaml:"cursor,omitempty"`
	CanInsert *bool       `yaml:"can_insert,omitempty"`
	InsertAt  *int        `yaml:"insert_at,omitempty"`
	Answers   []int       `yaml:"answers,omitempty"`
	Fields    []FileField `yaml:"fields"`
}

// FileField is the YAML form of one field.
type FileField struct {
	Code     string `yaml:"code"`
	Text     string `yaml:"text"`
	Rich     bool   `yaml:"rich,omitempty"`
	NoteType int    `yaml:"note_type,omitempty"`
}

// FromFile builds a document from its YAML form.
func FromFile(f File) (*Document, error) {
	d := NewDocument()
	d.data = f.Data
	for _, ff := range f.Fields {
		d.fields = append(d.fields, &Field{doc: d, code: ff.Code, text: ff.Text, rich: ff.Rich, noteType: ff.NoteType})
	}
	if f.Cursor != nil {
		if *f.Cursor < 0 || *f.Cursor >= len(d.fields) {
			return nil, fmt.Errorf("cursor %d out of range (%d fields)", *f.Cursor, len(d.fields))
		}
		d.cursor = d.fields[*f.Cursor]
	}
	if f.CanInsert != nil {
		d.canInsert = *f.CanInsert
	}
	if f.InsertAt != nil {
		d.insertAt = *f.InsertAt
	}
	d.answers = append(d.answers, f.Answers...)
	return d, nil
}

// ToFile captures the document state. Scripted answers already consumed are
// not written back.
func (d *Document) ToFile() File {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := File{Data: d.data, Fields: make([]FileField, 0, len(d.fields))}
	for i, fld := range d.fields {
		f.Fields = append(f.Fields, FileField{Code: fld.code, Text: fld.text, Rich: fld.rich, NoteType: fld.noteType})
		if fld == d.cursor {
			idx := i
			f.Cursor = &idx
		}
	}
	if !d.canInsert {
		no := false
		f.CanInsert = &no
	}
	if d.insertAt >= 0 {
		at := d.insertAt
		f.InsertAt = &at
	}
	f.Answers = append(f.Answers, d.answers...)
	return f
}

// Load reads a document file. Unknown keys are rejected.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse document file %s: %w", path, err)
	}
	return FromFile(f)
}

// Save writes the document to path.
func (d *Document) Save(path string) error {
	data, err := yaml.Marshal(d.ToFile())
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document file: %w", err)
	}
	return nil
}
