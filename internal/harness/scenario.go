package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/host/memhost"
	"github.com/roach88/citesync/internal/integration"
)

// Scenario is a scripted editing session on one document.
type Scenario struct {
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Style initializes the document data with this style. Leave it empty
	// to start from a document without data.
	Style string `yaml:"style,omitempty"`

	// DelayUpdates sets the delayed citation updates preference.
	DelayUpdates bool `yaml:"delay_updates,omitempty"`

	// CitationDialog picks the item dialog, QuickFormat when empty.
	CitationDialog string `yaml:"citation_dialog,omitempty"`

	// Items are added to the reference database before the first step.
	Items []ItemSpec `yaml:"items"`

	// Document is the initial document. Its data, when set, wins over Style.
	Document *memhost.File `yaml:"document,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// ItemSpec describes a reference database item.
type ItemSpec struct {
	Key     string     `yaml:"key"`
	Title   string     `yaml:"title"`
	Authors []csl.Name `yaml:"authors,omitempty"`
	Year    int        `yaml:"year,omitempty"`
}

// Step runs one command after applying its document edits and queuing its
// dialog and alert answers.
type Step struct {
	Command string `yaml:"command"`

	// Cursor places the cursor in a field; -1 moves it out of all fields.
	Cursor *int `yaml:"cursor,omitempty"`
	// InsertAt sets where the next field is inserted; -1 means the end.
	InsertAt  *int  `yaml:"insert_at,omitempty"`
	CanInsert *bool `yaml:"can_insert,omitempty"`
	// Edit types new text into fields, keyed by field index.
	Edit map[int]string `yaml:"edit,omitempty"`
	// Paste appends a copy of the field at this index.
	Paste *int `yaml:"paste,omitempty"`

	AddItems    []ItemSpec `yaml:"add_items,omitempty"`
	UpdateItems []ItemSpec `yaml:"update_items,omitempty"`

	// Cite answers the citation dialog with these item keys.
	Cite         []string          `yaml:"cite,omitempty"`
	Prefs        *PrefsSpec        `yaml:"prefs,omitempty"`
	Bibliography *BibliographySpec `yaml:"bibliography,omitempty"`
	// Cancel dismisses the named dialogs.
	Cancel []string `yaml:"cancel,omitempty"`
	// Alerts answers prompts in order.
	Alerts []int `yaml:"alerts,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// PrefsSpec answers the document preferences dialog. Unset fields keep the
// prefilled value.
type PrefsSpec struct {
	Style        string `yaml:"style,omitempty"`
	Locale       string `yaml:"locale,omitempty"`
	FieldType    string `yaml:"field_type,omitempty"`
	NoteType     *int   `yaml:"note_type,omitempty"`
	DelayUpdates *bool  `yaml:"delay_updates,omitempty"`
}

// BibliographySpec answers the edit bibliography dialog. Items are named
// by key.
type BibliographySpec struct {
	Add     []string          `yaml:"add,omitempty"`
	Omit    []string          `yaml:"omit,omitempty"`
	Restore []string          `yaml:"restore,omitempty"`
	Custom  map[string]string `yaml:"custom,omitempty"`
}

// Expect checks the outcome of a step.
type Expect struct {
	// Error is the expected error code; empty means success.
	Error  string         `yaml:"error,omitempty"`
	Fields *int           `yaml:"fields,omitempty"`
	Texts  map[int]string `yaml:"texts,omitempty"`
}

// Assertion is a check on the finished run.
type Assertion struct {
	Type string `yaml:"type"`

	Field *int `yaml:"field,omitempty"`

	Text string `yaml:"text,omitempty"`

	Method string `yaml:"method,omitempty"`

	Methods []string `yaml:"methods,omitempty"`

	Dialog string `yaml:"dialog,omitempty"`

	Count *int `yaml:"count,omitempty"`

	Indices []int `yaml:"indices,omitempty"`

	Seq int64 `yaml:"seq,omitempty"`

	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertFieldCount  = "field_count"
	AssertFieldText   = "field_text"
	AssertCallCount   = "call_count"
	AssertCallOrder   = "call_order"
	AssertDialogCount = "dialog_count"
	AssertAlertCount  = "alert_count"
	AssertNewIndices  = "new_indices"
	AssertJournal     = "journal"
)

// LoadScenario reads and validates a scenario file. Unknown keys are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	switch s.CitationDialog {
	case "", dialog.QuickFormat, dialog.SelectItems:
	default:
		return fmt.Errorf("citation_dialog %q is not a citation dialog", s.CitationDialog)
	}

	keys := make(map[string]bool)
	addKeys := func(where string, items []ItemSpec) error {
		for i, it := range items {
			if it.Key == "" {
				return fmt.Errorf("%s[%d]: key is required", where, i)
			}
			if keys[it.Key] {
				return fmt.Errorf("%s[%d]: duplicate key %q", where, i, it.Key)
			}
			keys[it.Key] = true
		}
		return nil
	}
	if err := addKeys("items", s.Items); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if !integration.ValidCommand(step.Command) {
			return fmt.Errorf("steps[%d]: unknown command %q", i, step.Command)
		}
		if err := addKeys(fmt.Sprintf("steps[%d].add_items", i), step.AddItems); err != nil {
			return err
		}
		for j, it := range step.UpdateItems {
			if !keys[it.Key] {
				return fmt.Errorf("steps[%d].update_items[%d]: unknown key %q", i, j, it.Key)
			}
		}
		refs := append([]string(nil), step.Cite...)
		if b := step.Bibliography; b != nil {
			refs = append(refs, b.Add...)
			refs = append(refs, b.Omit...)
			refs = append(refs, b.Restore...)
			for k := range b.Custom {
				refs = append(refs, k)
			}
		}
		for _, k := range refs {
			if !keys[k] {
				return fmt.Errorf("steps[%d]: unknown item key %q", i, k)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFieldCount, AssertAlertCount:
		if a.Count == nil {
			return fmt.Errorf("%s requires count", a.Type)
		}
	case AssertFieldText:
		if a.Field == nil {
			return fmt.Errorf("field_text requires field")
		}
	case AssertCallCount:
		if a.Method == "" || a.Count == nil {
			return fmt.Errorf("call_count requires method and count")
		}
	case AssertCallOrder:
		if len(a.Methods) == 0 {
			return fmt.Errorf("call_order requires methods")
		}
	case AssertDialogCount:
		if a.Dialog == "" || a.Count == nil {
			return fmt.Errorf("dialog_count requires dialog and count")
		}
	case AssertNewIndices:
	case AssertJournal:
		if a.Seq <= 0 || len(a.Expect) == 0 {
			return fmt.Errorf("journal requires seq and expect")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
