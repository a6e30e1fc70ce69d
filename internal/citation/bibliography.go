package citation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Bibliography is the persisted state of a bibliography field. The entries
// themselves are derived from the citations on every operation; only the
// user's edits are stored.
type Bibliography struct {
	// Uncited holds the URI lists of items added without a citation.
	Uncited [][]string `json:"uncited"`
	// Omitted holds the URI lists of cited items hidden from the list.
	Omitted [][]string `json:"omitted"`
	// Custom holds [uri, text] pairs overriding generated entry text.
	Custom [][]string `json:"custom"`

	raw      string
	snapshot []byte
}

// NewBibliography returns an empty bibliography descriptor.
func NewBibliography() *Bibliography {
	return &Bibliography{
		Uncited: [][]string{},
		Omitted: [][]string{},
		Custom:  [][]string{},
	}
}

// IsBibliographyCode reports whether code carries a bibliography tag.
func IsBibliographyCode(code string) bool {
	code = strings.TrimSpace(code)
	return code == BibliographyPrefix || strings.HasPrefix(code, BibliographyPrefix+" ")
}

// UnserializeBibliography decodes "BIBL {...} CSL_BIBLIOGRAPHY". A bare
// "BIBL" code decodes to an empty descriptor.
func UnserializeBibliography(code string) (*Bibliography, error) {
	trimmed := strings.TrimSpace(code)
	if !IsBibliographyCode(trimmed) {
		return nil, fmt.Errorf("%w: not a bibliography code", ErrInvalidCode)
	}

	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, BibliographyPrefix))
	payload = strings.TrimSpace(strings.TrimSuffix(payload, strings.TrimSpace(BibliographySuffix)))

	b := NewBibliography()
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
		}
		for i, pair := range b.Custom {
			if len(pair) != 2 {
				return nil, fmt.Errorf("%w: custom entry %d has %d elements", ErrInvalidCode, i, len(pair))
			}
		}
		b.normalize()
	}

	snapshot, err := marshalJSON(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	b.raw = code
	b.snapshot = snapshot
	return b, nil
}

func (b *Bibliography) normalize() {
	if b.Uncited == nil {
		b.Uncited = [][]string{}
	}
	if b.Omitted == nil {
		b.Omitted = [][]string{}
	}
	if b.Custom == nil {
		b.Custom = [][]string{}
	}
}

// Serialize encodes the descriptor as a field code. Unchanged descriptors
// return the code they were decoded from.
func (b *Bibliography) Serialize() (string, error) {
	b.normalize()
	data, err := marshalJSON(b)
	if err != nil {
		return "", fmt.Errorf("serialize bibliography: %w", err)
	}
	if b.raw != "" && bytes.Equal(data, b.snapshot) {
		return b.raw, nil
	}
	return BibliographyPrefix + " " + string(data) + BibliographySuffix, nil
}

// CustomText returns the override text for uri, if any.
func (b *Bibliography) CustomText(uri string) (string, bool) {
	for _, pair := range b.Custom {
		if pair[0] == uri {
			return pair[1], true
		}
	}
	return "", false
}

// IsOmitted reports whether any of uris is in the omitted list.
func (b *Bibliography) IsOmitted(uris []string) bool {
	return containsAny(b.Omitted, uris)
}

// IsUncited reports whether any of uris is in the uncited list.
func (b *Bibliography) IsUncited(uris []string) bool {
	return containsAny(b.Uncited, uris)
}

// SetCustom stores or replaces override text. Empty text removes it.
func (b *Bibliography) SetCustom(uri, text string) {
	out := b.Custom[:0:0]
	for _, pair := range b.Custom {
		if pair[0] != uri {
			out = append(out, pair)
		}
	}
	if text != "" {
		out = append(out, []string{uri, text})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	b.Custom = out
}

// AddUncited appends uris unless one of them is already listed.
func (b *Bibliography) AddUncited(uris []string) {
	if len(uris) == 0 || b.IsUncited(uris) {
		return
	}
	b.Uncited = append(b.Uncited, append([]string(nil), uris...))
}

// SetOmitted adds or removes uris from the omitted list.
func (b *Bibliography) SetOmitted(uris []string, omitted bool) {
	if omitted {
		if len(uris) > 0 && !b.IsOmitted(uris) {
			b.Omitted = append(b.Omitted, append([]string(nil), uris...))
		}
		return
	}
	out := b.Omitted[:0:0]
	for _, entry := range b.Omitted {
		if !overlaps(entry, uris) {
			out = append(out, entry)
		}
	}
	b.Omitted = out
}

func containsAny(lists [][]string, uris []string) bool {
	for _, entry := range lists {
		if overlaps(entry, uris) {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
