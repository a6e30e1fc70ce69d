// Package processor turns citation data into formatted text. The engine
// talks to the Processor interface; AuthorDate implements it from a compiled
// style.
package processor

import (
	"strings"

	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/host"
)

// Processor is the citation-processing capability the engine consumes.
type Processor interface {
	// SetLocale selects the language used for sorting. Unknown locales
	// fall back to the style default.
	SetLocale(locale string) error
	// Label is the base text two citations must share to need
	// disambiguation.
	Label(item csl.Item) string
	// Suffix returns the n-th disambiguation suffix, starting at zero.
	Suffix(n int) string
	FormatCitation(cites []Cite) Rendered
	// Bibliography sorts and formats entries.
	Bibliography(entries []Entry) Result
	HasBibliography() bool
	IsNote() bool
	BibliographyStyle() host.BibliographyStyle
}

// Cite is one item as it appears inside a citation.
type Cite struct {
	Item           csl.Item
	YearSuffix     string
	Prefix         string
	Suffix         string
	Locator        string
	Label          string
	SuppressAuthor bool
}

// Entry is one bibliography item.
type Entry struct {
	// ID is reported back in Result.EntryIDs.
	ID         string
	Item       csl.Item
	YearSuffix string
	// Custom replaces the generated text when set.
	Custom string
}

// Rendered holds plain and rich (RTF) forms of the same text.
type Rendered struct {
	Plain string
	Rich  string
}

// Result is a formatted bibliography.
type Result struct {
	Params   Params
	EntryIDs [][]string
	Entries  []Rendered
}

// Params are bibliography layout parameters passed through to the host.
type Params struct {
	FirstLineIndent int
	BodyIndent      int
	LineSpacing     int
	EntrySpacing    int
}

// Plain joins the plain text of all entries, one per line.
func (r Result) Plain() string {
	lines := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		lines[i] = e.Plain
	}
	return strings.Join(lines, "\n")
}

// Rich wraps all entries in one RTF group, one paragraph per entry.
func (r Result) Rich() string {
	paras := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		paras[i] = e.Rich
	}
	return "{\\rtf " + strings.Join(paras, "\\par ") + "}"
}
