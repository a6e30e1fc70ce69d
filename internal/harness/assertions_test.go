package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/host/memhost"
)

func intp(n int) *int { return &n }

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Kind: EventCommand, Name: "addCitation", Field: -1},
		{Seq: 2, Kind: EventDialog, Name: "quickFormat", Field: -1},
		{Seq: 3, Kind: EventCall, Name: "Activate", Field: -1},
		{Seq: 4, Kind: EventCall, Name: "InsertField", Field: -1},
		{Seq: 5, Kind: EventCall, Name: "SetText", Field: 0},
		{Seq: 6, Kind: EventCall, Name: "SetDocumentData", Field: -1},
		{Seq: 7, Kind: EventAlert, Name: "DisplayAlert", Field: -1, Detail: "hello"},
		{Seq: 8, Kind: EventOutcome, Name: "ok", Field: -1},
	}
	r.Document = memhost.File{Fields: []memhost.FileField{
		{Code: "ITEM CSL_CITATION {}", Text: `{\rtf (Smith, 2019)}`, Rich: true},
	}}
	r.NewIndices = []int{0}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertFieldCount, Count: intp(1)},
		{Type: AssertFieldText, Field: intp(0), Text: "(Smith, 2019)"},
		{Type: AssertCallCount, Method: "SetText", Count: intp(1)},
		{Type: AssertCallOrder, Methods: []string{"Activate", "SetText", "SetDocumentData"}},
		{Type: AssertDialogCount, Dialog: "quickFormat", Count: intp(1)},
		{Type: AssertAlertCount, Count: intp(1)},
		{Type: AssertNewIndices, Indices: []int{0}},
	}

	errs := EvaluateAssertions(sampleResult(), assertions, nil)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"field count", Assertion{Type: AssertFieldCount, Count: intp(2)}, "Expected: 2 fields"},
		{"field text", Assertion{Type: AssertFieldText, Field: intp(0), Text: "x"}, `Actual: field 0 text "(Smith, 2019)"`},
		{"field out of range", Assertion{Type: AssertFieldText, Field: intp(3), Text: "x"}, "Actual: 1 fields"},
		{"call count", Assertion{Type: AssertCallCount, Method: "SetCode", Count: intp(1)}, "Actual: call SetCode 0 times"},
		{"call order", Assertion{Type: AssertCallOrder, Methods: []string{"SetDocumentData", "SetText"}}, "SetText missing after 1 matched"},
		{"dialog count", Assertion{Type: AssertDialogCount, Dialog: "integrationDocPrefs", Count: intp(1)}, "dialog integrationDocPrefs 0 times"},
		{"alert count", Assertion{Type: AssertAlertCount, Count: intp(0)}, "Actual: alert 1 times"},
		{"new indices", Assertion{Type: AssertNewIndices}, "Actual: new indices [0]"},
		{"journal without store", Assertion{Type: AssertJournal, Seq: 1}, "journal requires database context"},
		{"unknown", Assertion{Type: "nope"}, `unknown assertion type "nope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion}, nil)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_ListsCommands(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFieldCount,
		Expected: "2 fields",
		Actual:   "1 fields",
		Trace:    sampleResult().Trace,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: field_count")
	assert.Contains(t, msg, "command addCitation")
	assert.Contains(t, msg, "outcome ok")
	assert.NotContains(t, msg, "SetText")
}

func TestEvaluateAssertions_Journal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario + `
assertions:
  - type: journal
    seq: 1
    expect: {command: addEditCitation, status: ok, inserted: 1}
  - type: journal
    seq: 1
    expect: {status: cancelled}
  - type: journal
    seq: 7
    expect: {status: ok}
`))
	require.NoError(t, err)

	result, err := RunContext(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "record 1 status = cancelled")
	assert.Contains(t, result.Errors[1], "journal record 7")
}
