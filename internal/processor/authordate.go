package processor

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/style"
)

var locatorLabels = map[string]string{
	"page":      "p.",
	"chapter":   "chap.",
	"section":   "sec.",
	"volume":    "vol.",
	"paragraph": "para.",
	"figure":    "fig.",
	"line":      "l.",
}

// AuthorDate renders author/year citations and author-sorted bibliographies.
// Not safe for concurrent use; each session owns one.
type AuthorDate struct {
	style    *style.Style
	tag      language.Tag
	collator *collate.Collator
}

// New returns a processor for s using the style's default locale.
func New(s *style.Style) *AuthorDate {
	p := &AuthorDate{style: s}
	if err := p.SetLocale(""); err != nil {
		p.tag = language.AmericanEnglish
		p.collator = collate.New(p.tag, collate.IgnoreCase)
	}
	return p
}

// SetLocale parses locale as a BCP 47 tag. An empty or invalid locale
// selects the style default; the error reports the invalid one.
func (p *AuthorDate) SetLocale(locale string) error {
	if locale == "" {
		locale = p.style.DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag, _ = language.Parse(p.style.DefaultLocale)
		p.tag = tag
		p.collator = collate.New(tag, collate.IgnoreCase)
		return fmt.Errorf("locale %q: %w", locale, err)
	}
	p.tag = tag
	p.collator = collate.New(tag, collate.IgnoreCase)
	return nil
}

// Locale returns the active language tag.
func (p *AuthorDate) Locale() language.Tag {
	return p.tag
}

func (p *AuthorDate) HasBibliography() bool { return p.style.HasBibliography() }
func (p *AuthorDate) IsNote() bool          { return p.style.IsNote() }

func (p *AuthorDate) BibliographyStyle() host.BibliographyStyle {
	return p.style.BibliographyStyle()
}

func (p *AuthorDate) Label(item csl.Item) string {
	return p.authorShort(item) + p.style.Citation.AuthorYearDelimiter + p.year(item)
}

// Suffix maps 0..25 to a..z, then continues aa, ab, ...
func (p *AuthorDate) Suffix(n int) string {
	return suffix(n)
}

func suffix(n int) string {
	if n < 26 {
		return string(rune('a' + n))
	}
	return suffix(n/26-1) + string(rune('a'+n%26))
}

func (p *AuthorDate) FormatCitation(cites []Cite) Rendered {
	layout := p.style.Citation
	parts := make([]string, 0, len(cites))
	for _, c := range cites {
		var b strings.Builder
		if c.Prefix != "" {
			b.WriteString(c.Prefix)
			b.WriteByte(' ')
		}
		if !c.SuppressAuthor {
			b.WriteString(p.authorShort(c.Item))
			b.WriteString(layout.AuthorYearDelimiter)
		}
		b.WriteString(p.year(c.Item))
		b.WriteString(c.YearSuffix)
		if c.Locator != "" {
			b.WriteString(", ")
			b.WriteString(locatorLabel(c.Label))
			b.WriteString(c.Locator)
		}
		if c.Suffix != "" {
			b.WriteByte(' ')
			b.WriteString(c.Suffix)
		}
		parts = append(parts, b.String())
	}

	plain := layout.Prefix + strings.Join(parts, layout.Delimiter) + layout.Suffix
	return Rendered{Plain: plain, Rich: EscapeRTF(plain)}
}

func locatorLabel(label string) string {
	if label == "" {
		label = "page"
	}
	if abbr, ok := locatorLabels[label]; ok {
		return abbr + " "
	}
	return label + " "
}

func (p *AuthorDate) Bibliography(entries []Entry) Result {
	layout := p.style.Bibliography
	if layout == nil {
		return Result{EntryIDs: [][]string{}, Entries: []Rendered{}}
	}

	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return p.less(layout.Sort, sorted[i], sorted[j])
	})

	res := Result{
		Params: Params{
			FirstLineIndent: layout.FirstLineIndent,
			BodyIndent:      layout.BodyIndent,
			LineSpacing:     layout.LineSpacing,
			EntrySpacing:    layout.EntrySpacing,
		},
		EntryIDs: make([][]string, 0, len(sorted)),
		Entries:  make([]Rendered, 0, len(sorted)),
	}
	for _, e := range sorted {
		res.EntryIDs = append(res.EntryIDs, []string{e.ID})
		if e.Custom != "" {
			res.Entries = append(res.Entries, Rendered{Plain: e.Custom, Rich: EscapeRTF(e.Custom)})
			continue
		}
		res.Entries = append(res.Entries, p.entry(layout, e))
	}
	return res
}

func (p *AuthorDate) entry(layout *style.BibliographyLayout, e Entry) Rendered {
	var plain, rich []string
	if a := p.authorsLong(e.Item); a != "" {
		plain = append(plain, a)
		rich = append(rich, EscapeRTF(a))
	}
	if y := e.Item.Year(); y != "" {
		plain = append(plain, y+e.YearSuffix)
		rich = append(rich, EscapeRTF(y+e.YearSuffix))
	}
	if t := e.Item.Title; t != "" {
		plain = append(plain, t)
		rich = append(rich, "{\\i "+EscapeRTF(t)+"}")
	}
	return Rendered{
		Plain: terminate(strings.Join(plain, layout.Delimiter), layout.EntrySuffix),
		Rich:  terminate(strings.Join(rich, layout.Delimiter), layout.EntrySuffix),
	}
}

func terminate(s, suffix string) string {
	if suffix == "" || strings.HasSuffix(s, suffix) {
		return s
	}
	return s + suffix
}

func (p *AuthorDate) less(keys []string, a, b Entry) bool {
	for _, k := range keys {
		var x, y string
		switch k {
		case "author":
			x, y = p.authorSortKey(a.Item), p.authorSortKey(b.Item)
		case "year":
			x, y = a.Item.Year()+a.YearSuffix, b.Item.Year()+b.YearSuffix
		case "title":
			x, y = a.Item.Title, b.Item.Title
		}
		if c := p.collator.CompareString(x, y); c != 0 {
			return c < 0
		}
	}
	return a.ID < b.ID
}

func (p *AuthorDate) authorSortKey(item csl.Item) string {
	if len(item.Author) == 0 {
		return item.Title
	}
	keys := make([]string, len(item.Author))
	for i, n := range item.Author {
		keys[i] = n.SortName()
	}
	return strings.Join(keys, " ")
}

func (p *AuthorDate) authorShort(item csl.Item) string {
	layout := p.style.Citation
	switch len(item.Author) {
	case 0:
		return item.Title
	case 1:
		return item.Author[0].Short()
	case 2:
		return item.Author[0].Short() + " " + layout.AndWord + " " + item.Author[1].Short()
	default:
		return item.Author[0].Short() + " " + layout.EtAl
	}
}

func (p *AuthorDate) authorsLong(item csl.Item) string {
	names := make([]string, len(item.Author))
	for i, n := range item.Author {
		names[i] = n.Initials()
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", " + p.style.Citation.AndWord + " " + names[len(names)-1]
	}
}

func (p *AuthorDate) year(item csl.Item) string {
	if y := item.Year(); y != "" {
		return y
	}
	return p.style.Citation.NoDate
}

// EscapeRTF escapes characters with meaning in RTF and encodes non-ASCII
// runes as \uN? sequences.
func EscapeRTF(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '{' || r == '}':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r > 127:
			n := int(r)
			if n > 32767 {
				n -= 65536
			}
			if r > 0xFFFF {
				// Outside the BMP; RTF readers expect surrogate pairs.
				hi, lo := surrogates(r)
				fmt.Fprintf(&b, "\\u%d?\\u%d?", hi, lo)
				continue
			}
			fmt.Fprintf(&b, "\\u%d?", n)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func surrogates(r rune) (int, int) {
	r -= 0x10000
	hi := int(0xD800+(r>>10)) - 65536
	lo := int(0xDC00+(r&0x3FF)) - 65536
	return hi, lo
}
