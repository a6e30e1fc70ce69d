package docdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Known preference keys, in wire order.
const (
	prefFieldType                     = "fieldType"
	prefAutomaticJournalAbbreviations = "automaticJournalAbbreviations"
	prefNoteType                      = "noteType"
	prefExtractingLibraryID           = "extractingLibraryID"
	prefExtractingLibraryName         = "extractingLibraryName"
	prefSuppressTrailingPunctuation   = "suppressTrailingPunctuation"
	prefDelayCitationUpdates          = "delayCitationUpdates"
	prefUseEndnotes                   = "useEndnotes"
)

type prefsWire struct {
	FieldType                     string `json:"fieldType"`
	AutomaticJournalAbbreviations bool   `json:"automaticJournalAbbreviations"`
	NoteType                      int    `json:"noteType"`
	ExtractingLibraryID           int    `json:"extractingLibraryID,omitempty"`
	ExtractingLibraryName         string `json:"extractingLibraryName,omitempty"`
	SuppressTrailingPunctuation   bool   `json:"suppressTrailingPunctuation,omitempty"`
	DelayCitationUpdates          bool   `json:"delayCitationUpdates,omitempty"`
	UseEndnotes                   bool   `json:"useEndnotes,omitempty"`
}

func isKnownPref(name string) bool {
	switch name {
	case prefFieldType, prefAutomaticJournalAbbreviations, prefNoteType,
		prefExtractingLibraryID, prefExtractingLibraryName,
		prefSuppressTrailingPunctuation, prefDelayCitationUpdates, prefUseEndnotes:
		return true
	}
	return false
}

// MarshalJSON writes the core keys always, optional keys when set, then
// unknown keys in sorted order.
func (p Prefs) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(prefsWire{
		FieldType:                     p.FieldType,
		AutomaticJournalAbbreviations: p.AutomaticJournalAbbreviations,
		NoteType:                      p.NoteType,
		ExtractingLibraryID:           p.ExtractingLibraryID,
		ExtractingLibraryName:         p.ExtractingLibraryName,
		SuppressTrailingPunctuation:   p.SuppressTrailingPunctuation,
		DelayCitationUpdates:          p.DelayCitationUpdates,
		UseEndnotes:                   p.UseEndnotes,
	})
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return data, nil
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		if !isKnownPref(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		if !json.Valid(p.Extra[k]) {
			return nil, fmt.Errorf("pref %q: invalid JSON value", k)
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(p.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads known keys into typed fields and keeps the rest.
func (p *Prefs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var w prefsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Prefs{
		NoteType:                      w.NoteType,
		FieldType:                     w.FieldType,
		AutomaticJournalAbbreviations: w.AutomaticJournalAbbreviations,
		ExtractingLibraryID:           w.ExtractingLibraryID,
		ExtractingLibraryName:         w.ExtractingLibraryName,
		SuppressTrailingPunctuation:   w.SuppressTrailingPunctuation,
		DelayCitationUpdates:          w.DelayCitationUpdates,
		UseEndnotes:                   w.UseEndnotes,
	}

	for k, v := range raw {
		if isKnownPref(k) {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	return nil
}
