// Package citation models the descriptors stored in citation and
// bibliography field codes.
package citation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Code markers written into field codes.
const (
	CitationPrefix       = "ITEM CSL_CITATION "
	LegacyCitationPrefix = "ITEM "
	BibliographyPrefix   = "BIBL"
	BibliographySuffix   = " CSL_BIBLIOGRAPHY"
	TempCode             = "TEMP"

	// SchemaURL identifies the citation JSON schema.
	SchemaURL = "https://github.com/citation-style-language/schema/raw/master/csl-citation.json"
)

// ErrInvalidCode is wrapped when a field code cannot be decoded.
var ErrInvalidCode = errors.New("invalid field code")

// Citation is the decoded payload of a citation field.
type Citation struct {
	CitationID string     `json:"citationID"`
	Properties Properties `json:"properties"`
	Items      []Item     `json:"citationItems"`
	Schema     string     `json:"schema,omitempty"`

	// Unresolved lists items the reference database could not supply.
	Unresolved []UnresolvedItemError `json:"-"`

	raw      string
	snapshot []byte
}

// Item is one cited work inside a citation.
type Item struct {
	ID             int64           `json:"id"`
	URIs           []string        `json:"uris,omitempty"`
	ItemData       json.RawMessage `json:"itemData,omitempty"`
	Prefix         string          `json:"prefix,omitempty"`
	Suffix         string          `json:"suffix,omitempty"`
	Label          string          `json:"label,omitempty"`
	Locator        string          `json:"locator,omitempty"`
	SuppressAuthor bool            `json:"suppress-author,omitempty"`
}

// Properties are per-citation rendering properties.
type Properties struct {
	FormattedCitation string `json:"formattedCitation,omitempty"`
	PlainCitation     string `json:"plainCitation,omitempty"`
	NoteIndex         int    `json:"noteIndex"`
	DontUpdate        bool   `json:"dontUpdate,omitempty"`
}

// UnresolvedItemError reports a cited item missing from the reference database.
type UnresolvedItemError struct {
	CitationID string
	ItemID     int64
	URIs       []string
	// Embedded is true when the item still rendered from its itemData.
	Embedded bool
}

func (e *UnresolvedItemError) Error() string {
	if e.CitationID == "" {
		return fmt.Sprintf("bibliography: item %d not found", e.ItemID)
	}
	if len(e.URIs) > 0 {
		return fmt.Sprintf("citation %s: item %s not found", e.CitationID, e.URIs[0])
	}
	return fmt.Sprintf("citation %s: item %d not found", e.CitationID, e.ItemID)
}

// New returns an empty citation with the given id.
func New(id string) *Citation {
	return &Citation{CitationID: id, Schema: SchemaURL}
}

// Unserialize decodes a citation field code in either the current
// "ITEM CSL_CITATION {...}" form or the older "ITEM {...}" form.
func Unserialize(code string) (*Citation, error) {
	payload, ok := citationPayload(code)
	if !ok {
		return nil, fmt.Errorf("%w: not a citation code", ErrInvalidCode)
	}

	c := &Citation{}
	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after citation", ErrInvalidCode)
	}

	snapshot, err := marshalJSON(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	c.raw = code
	c.snapshot = snapshot
	return c, nil
}

func citationPayload(code string) (string, bool) {
	code = strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(code, CitationPrefix):
		return code[len(CitationPrefix):], true
	case strings.HasPrefix(code, LegacyCitationPrefix):
		return code[len(LegacyCitationPrefix):], true
	}
	return "", false
}

// IsCitationCode reports whether code carries a citation tag.
func IsCitationCode(code string) bool {
	_, ok := citationPayload(code)
	return ok
}

// Serialize encodes the citation as a field code. A citation that has not
// changed since Unserialize returns the original code unchanged.
func (c *Citation) Serialize() (string, error) {
	data, err := marshalJSON(c)
	if err != nil {
		return "", fmt.Errorf("serialize citation %s: %w", c.CitationID, err)
	}
	if c.raw != "" && bytes.Equal(data, c.snapshot) {
		return c.raw, nil
	}
	return CitationPrefix + string(data), nil
}

// Modified reports whether the citation differs from the code it was
// decoded from. New citations are always modified.
func (c *Citation) Modified() bool {
	if c.raw == "" {
		return true
	}
	data, err := marshalJSON(c)
	return err != nil || !bytes.Equal(data, c.snapshot)
}

// Clone returns a deep copy that remembers the same original code.
func (c *Citation) Clone() *Citation {
	out := *c
	if c.Items != nil {
		out.Items = make([]Item, len(c.Items))
		for i, it := range c.Items {
			out.Items[i] = it.clone()
		}
	}
	out.Unresolved = append([]UnresolvedItemError(nil), c.Unresolved...)
	out.snapshot = append([]byte(nil), c.snapshot...)
	return &out
}

func (it Item) clone() Item {
	it.URIs = append([]string(nil), it.URIs...)
	if it.ItemData != nil {
		it.ItemData = append(json.RawMessage(nil), it.ItemData...)
	}
	return it
}

// ItemIDs returns the cited item ids in order.
func (c *Citation) ItemIDs() []int64 {
	ids := make([]int64, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ID
	}
	return ids
}

// ItemsEqual compares two item lists by id sequence and the
// prefix/suffix/locator/label of each item. Item metadata is ignored.
func ItemsEqual(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			a[i].Prefix != b[i].Prefix ||
			a[i].Suffix != b[i].Suffix ||
			a[i].Locator != b[i].Locator ||
			a[i].Label != b[i].Label {
			return false
		}
	}
	return true
}

// marshalJSON encodes v without HTML escaping so rendered text stays readable
// inside field codes.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
