// Package style compiles citation style definitions written in CUE.
//
// A style file is unified with an embedded schema that supplies defaults and
// rejects unknown keys, then decoded into a Style.
package style

import (
	_ "embed"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/citesync/internal/host"
)

//go:embed schema.cue
var schemaSource string

// ErrNotFound is returned when a style id is not installed.
var ErrNotFound = errors.New("style not found")

// Style classes.
const (
	ClassInText = "in-text"
	ClassNote   = "note"
)

// Style is a compiled citation style.
type Style struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Class         string              `json:"class"`
	DefaultLocale string              `json:"defaultLocale"`
	Citation      CitationLayout      `json:"citation"`
	Bibliography  *BibliographyLayout `json:"bibliography,omitempty"`

	// Source is the CUE text the style was compiled from.
	Source string `json:"-"`
}

// CitationLayout controls in-text and note citation rendering.
type CitationLayout struct {
	Prefix              string `json:"prefix"`
	Suffix              string `json:"suffix"`
	Delimiter           string `json:"delimiter"`
	AuthorYearDelimiter string `json:"authorYearDelimiter"`
	NoDate              string `json:"noDate"`
	EtAl                string `json:"etAl"`
	AndWord             string `json:"andWord"`
}

// BibliographyLayout controls bibliography entries and paragraph layout.
type BibliographyLayout struct {
	EntrySuffix     string   `json:"entrySuffix"`
	Delimiter       string   `json:"delimiter"`
	Sort            []string `json:"sort"`
	FirstLineIndent int      `json:"firstLineIndent"`
	BodyIndent      int      `json:"bodyIndent"`
	LineSpacing     int      `json:"lineSpacing"`
	EntrySpacing    int      `json:"entrySpacing"`
}

// IsNote reports whether citations belong in footnotes or endnotes.
func (s *Style) IsNote() bool {
	return s.Class == ClassNote
}

// HasBibliography reports whether the style defines a bibliography.
func (s *Style) HasBibliography() bool {
	return s.Bibliography != nil
}

// BibliographyStyle returns the paragraph layout handed to the host.
func (s *Style) BibliographyStyle() host.BibliographyStyle {
	if s.Bibliography == nil {
		return host.BibliographyStyle{}
	}
	return host.BibliographyStyle{
		FirstLineIndent: s.Bibliography.FirstLineIndent,
		BodyIndent:      s.Bibliography.BodyIndent,
		LineSpacing:     s.Bibliography.LineSpacing,
		EntrySpacing:    s.Bibliography.EntrySpacing,
	}
}

// Compile parses and validates a style. filename is used in error positions.
func Compile(filename, source string) (*Style, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Style"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("style schema: %w", err)
	}

	v := ctx.CompileString(source, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var s Style
	if err := unified.Decode(&s); err != nil {
		return nil, formatCUEError(err)
	}
	s.Source = source
	return &s, nil
}

// CompileError is a style compilation failure with its source position.
type CompileError struct {
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{Message: first.Error(), Pos: positions[0]}
	}
	return &CompileError{Message: first.Error()}
}
