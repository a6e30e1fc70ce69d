package docdata

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
)

type legacyData struct {
	XMLName       xml.Name      `xml:"data"`
	DataVersion   string        `xml:"data-version,attr"`
	ZoteroVersion string        `xml:"zotero-version,attr"`
	Session       legacySession `xml:"session"`
	Style         legacyStyle   `xml:"style"`
	Prefs         []legacyPref  `xml:"prefs>pref"`
}

type legacySession struct {
	ID string `xml:"id,attr"`
}

type legacyStyle struct {
	ID                          string `xml:"id,attr"`
	Locale                      string `xml:"locale,attr,omitempty"`
	HasBibliography             string `xml:"hasBibliography,attr"`
	BibliographyStyleHasBeenSet string `xml:"bibliographyStyleHasBeenSet,attr"`
}

type legacyPref struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func unmarshalLegacy(s string) (*DocumentData, error) {
	var ld legacyData
	if err := xml.Unmarshal([]byte(s), &ld); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	dataVersion, err := strconv.Atoi(ld.DataVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: data-version %q", ErrMalformed, ld.DataVersion)
	}

	// Absent prefs keep their zero values, which are the documented
	// defaults for extractingLibraryID, extractingLibraryName and
	// suppressTrailingPunctuation.
	d := &DocumentData{
		Style: Style{
			StyleID:                     ld.Style.ID,
			Locale:                      ld.Style.Locale,
			HasBibliography:             legacyBool(ld.Style.HasBibliography),
			BibliographyStyleHasBeenSet: legacyBool(ld.Style.BibliographyStyleHasBeenSet),
		},
		SessionID:     ld.Session.ID,
		ZoteroVersion: ld.ZoteroVersion,
		DataVersion:   dataVersion,
	}

	for _, pref := range ld.Prefs {
		if err := d.Prefs.setLegacy(pref.Name, pref.Value); err != nil {
			return nil, fmt.Errorf("%w: pref %q: %v", ErrMalformed, pref.Name, err)
		}
	}
	return d, nil
}

func (p *Prefs) setLegacy(name, value string) error {
	var err error
	switch name {
	case prefFieldType:
		p.FieldType = value
	case prefAutomaticJournalAbbreviations:
		p.AutomaticJournalAbbreviations = legacyBool(value)
	case prefNoteType:
		p.NoteType, err = strconv.Atoi(value)
	case prefExtractingLibraryID:
		p.ExtractingLibraryID, err = strconv.Atoi(value)
	case prefExtractingLibraryName:
		p.ExtractingLibraryName = value
	case prefSuppressTrailingPunctuation:
		p.SuppressTrailingPunctuation = legacyBool(value)
	case prefDelayCitationUpdates:
		p.DelayCitationUpdates = legacyBool(value)
	case prefUseEndnotes:
		p.UseEndnotes = legacyBool(value)
	default:
		raw, merr := json.Marshal(value)
		if merr != nil {
			return merr
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[name] = raw
	}
	return err
}

func marshalLegacy(d *DocumentData) (string, error) {
	ld := legacyData{
		DataVersion:   strconv.Itoa(d.DataVersion),
		ZoteroVersion: d.ZoteroVersion,
		Session:       legacySession{ID: d.SessionID},
		Style: legacyStyle{
			ID:                          d.Style.StyleID,
			Locale:                      d.Style.Locale,
			HasBibliography:             legacyFlag(d.Style.HasBibliography),
			BibliographyStyleHasBeenSet: legacyFlag(d.Style.BibliographyStyleHasBeenSet),
		},
	}

	p := d.Prefs
	ld.Prefs = append(ld.Prefs,
		legacyPref{prefFieldType, p.FieldType},
		legacyPref{prefAutomaticJournalAbbreviations, strconv.FormatBool(p.AutomaticJournalAbbreviations)},
		legacyPref{prefNoteType, strconv.Itoa(p.NoteType)},
	)
	if p.ExtractingLibraryID != 0 {
		ld.Prefs = append(ld.Prefs, legacyPref{prefExtractingLibraryID, strconv.Itoa(p.ExtractingLibraryID)})
	}
	if p.ExtractingLibraryName != "" {
		ld.Prefs = append(ld.Prefs, legacyPref{prefExtractingLibraryName, p.ExtractingLibraryName})
	}
	if p.SuppressTrailingPunctuation {
		ld.Prefs = append(ld.Prefs, legacyPref{prefSuppressTrailingPunctuation, "true"})
	}
	if p.DelayCitationUpdates {
		ld.Prefs = append(ld.Prefs, legacyPref{prefDelayCitationUpdates, "true"})
	}
	if p.UseEndnotes {
		ld.Prefs = append(ld.Prefs, legacyPref{prefUseEndnotes, "true"})
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		if !isKnownPref(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		var s string
		if err := json.Unmarshal(p.Extra[k], &s); err != nil {
			// Legacy prefs are strings; non-string values keep their JSON text.
			s = string(p.Extra[k])
		}
		ld.Prefs = append(ld.Prefs, legacyPref{k, s})
	}

	out, err := xml.Marshal(ld)
	if err != nil {
		return "", fmt.Errorf("serialize legacy document data: %w", err)
	}
	return string(out), nil
}

func legacyBool(s string) bool {
	return s == "1" || s == "true"
}

func legacyFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
