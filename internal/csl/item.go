// Package csl holds the subset of CSL-JSON item data the engine renders.
package csl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Item is a CSL-JSON bibliographic record. Fields the renderer does not use
// are dropped on decode.
type Item struct {
	ID             string `json:"id"`
	Type           string `json:"type,omitempty"`
	Title          string `json:"title,omitempty"`
	ContainerTitle string `json:"container-title,omitempty"`
	Author         []Name `json:"author,omitempty"`
	Issued         *Date  `json:"issued,omitempty"`
	Publisher      string `json:"publisher,omitempty"`
	Volume         string `json:"volume,omitempty"`
	Page           string `json:"page,omitempty"`
	DOI            string `json:"DOI,omitempty"`
	URL            string `json:"URL,omitempty"`
}

// Name is a CSL name. Literal names carry no family/given split.
type Name struct {
	Family  string `json:"family,omitempty"`
	Given   string `json:"given,omitempty"`
	Literal string `json:"literal,omitempty"`
}

// Date is a CSL date. Only the first date part is used.
type Date struct {
	DateParts [][]int `json:"date-parts,omitempty"`
	Raw       string  `json:"raw,omitempty"`
	Literal   string  `json:"literal,omitempty"`
}

// Parse decodes CSL-JSON. Numeric ids are accepted and converted to strings.
func Parse(data []byte) (Item, error) {
	type plain Item
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return Item{}, fmt.Errorf("parse csl item: %w", err)
	}
	item := Item(aux.plain)
	item.ID = idString(aux.ID)
	return item, nil
}

func idString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}

// Marshal encodes the item as CSL-JSON.
func (it Item) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("marshal csl item: %w", err)
	}
	return data, nil
}

// Year returns the issued year, or "" when undated.
func (it Item) Year() string {
	if it.Issued == nil {
		return ""
	}
	return it.Issued.Year()
}

// Year extracts a four-digit year from the first date part, the raw form or
// the literal form, in that order.
func (d *Date) Year() string {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 && d.DateParts[0][0] != 0 {
		return strconv.Itoa(d.DateParts[0][0])
	}
	for _, s := range []string{d.Raw, d.Literal} {
		if y := scanYear(s); y != "" {
			return y
		}
	}
	return ""
}

func scanYear(s string) string {
	run := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			run++
			if run == 4 && (i+1 == len(s) || s[i+1] < '0' || s[i+1] > '9') {
				return s[i-3 : i+1]
			}
			continue
		}
		run = 0
	}
	return ""
}

// SortName is the key used to order a name in bibliographies.
func (n Name) SortName() string {
	if n.Literal != "" {
		return n.Literal
	}
	if n.Given == "" {
		return n.Family
	}
	return n.Family + " " + n.Given
}

// Short is the form used in in-text citations.
func (n Name) Short() string {
	if n.Literal != "" {
		return n.Literal
	}
	return n.Family
}

// Initials renders "Smith, R. J." style names for bibliography entries.
func (n Name) Initials() string {
	if n.Literal != "" {
		return n.Literal
	}
	var b strings.Builder
	b.WriteString(n.Family)
	fields := strings.Fields(strings.ReplaceAll(n.Given, "-", " "))
	if len(fields) > 0 {
		b.WriteByte(',')
	}
	for _, f := range fields {
		b.WriteByte(' ')
		r := []rune(f)
		b.WriteRune(r[0])
		b.WriteByte('.')
	}
	return b.String()
}
