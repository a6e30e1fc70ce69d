package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/citesync/internal/host/memhost"
	"github.com/roach88/citesync/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nCommands:\n")
	for _, event := range e.Trace {
		if event.Kind == EventCommand || event.Kind == EventOutcome {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Step, event.Kind, event.Name)
		}
	}
	return buf.String()
}

// AssertionContext provides the final state for evaluating assertions.
type AssertionContext struct {
	Ctx   context.Context
	Store *store.Store
	Doc   *memhost.Document
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFieldCount:
			err = assertFieldCount(result, assertion)
		case AssertFieldText:
			err = assertFieldText(result, assertion)
		case AssertCallCount:
			err = assertCount(result.Trace, assertion, EventCall, assertion.Method)
		case AssertCallOrder:
			err = assertCallOrder(result.Trace, assertion)
		case AssertDialogCount:
			err = assertCount(result.Trace, assertion, EventDialog, assertion.Dialog)
		case AssertAlertCount:
			err = assertCount(result.Trace, assertion, EventAlert, "")
		case AssertNewIndices:
			err = assertNewIndices(result, assertion)
		case AssertJournal:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal requires database context", i)
			} else {
				err = assertJournal(actx.Ctx, actx.Store, result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertFieldCount(result *Result, a Assertion) error {
	got := len(result.Document.Fields)
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFieldCount,
		Expected: fmt.Sprintf("%d fields", *a.Count),
		Actual:   fmt.Sprintf("%d fields", got),
		Trace:    result.Trace,
	}
}

func assertFieldText(result *Result, a Assertion) error {
	fields := result.Document.Fields
	i := *a.Field
	if i < 0 || i >= len(fields) {
		return &AssertionError{
			Type:     AssertFieldText,
			Expected: fmt.Sprintf("field %d with text %q", i, a.Text),
			Actual:   fmt.Sprintf("%d fields", len(fields)),
			Trace:    result.Trace,
		}
	}
	got := fields[i].Text
	if fields[i].Rich {
		got = memhost.StripRTF(got)
	}
	if got == a.Text {
		return nil
	}
	return &AssertionError{
		Type:     AssertFieldText,
		Expected: fmt.Sprintf("field %d text %q", i, a.Text),
		Actual:   fmt.Sprintf("field %d text %q", i, got),
		Trace:    result.Trace,
	}
}

// assertCount counts trace events of kind, and of name unless name is empty.
func assertCount(trace []TraceEvent, a Assertion, kind, name string) error {
	n := 0
	for _, event := range trace {
		if event.Kind == kind && (name == "" || event.Name == name) {
			n++
		}
	}
	if n == *a.Count {
		return nil
	}
	what := kind
	if name != "" {
		what = kind + " " + name
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s %d times", what, *a.Count),
		Actual:   fmt.Sprintf("%s %d times", what, n),
		Trace:    trace,
	}
}

// assertCallOrder checks that host methods appear in the given order.
// Other calls may appear in between.
func assertCallOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(a.Methods) {
			break
		}
		if event.Kind == EventCall && event.Name == a.Methods[next] {
			next++
		}
	}
	if next == len(a.Methods) {
		return nil
	}

	var seen []string
	for _, event := range trace {
		if event.Kind == EventCall {
			seen = append(seen, event.Name)
		}
	}
	return &AssertionError{
		Type:     AssertCallOrder,
		Expected: fmt.Sprintf("calls in order %v", a.Methods),
		Actual:   fmt.Sprintf("%s missing after %d matched; calls were %v", a.Methods[next], next, seen),
		Trace:    trace,
	}
}

func assertNewIndices(result *Result, a Assertion) error {
	want := append([]int(nil), a.Indices...)
	got := append([]int(nil), result.NewIndices...)
	sort.Ints(want)
	sort.Ints(got)
	if fmt.Sprint(want) == fmt.Sprint(got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNewIndices,
		Expected: fmt.Sprintf("new indices %v", want),
		Actual:   fmt.Sprintf("new indices %v", got),
		Trace:    result.Trace,
	}
}

// assertJournal compares the journal record with seq against expect.
// Keys are command, status, writes and inserted.
func assertJournal(ctx context.Context, st *store.Store, trace []TraceEvent, a Assertion) error {
	records, err := st.ListJournal(ctx, DocID)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	var rec *store.JournalRecord
	for i := range records {
		if records[i].Seq == a.Seq {
			rec = &records[i]
			break
		}
	}
	if rec == nil {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("journal record %d", a.Seq),
			Actual:   fmt.Sprintf("%d records", len(records)),
			Trace:    trace,
		}
	}

	actual := map[string]any{
		"command":  rec.Command,
		"status":   rec.Status,
		"writes":   rec.Writes,
		"inserted": rec.Inserted,
	}
	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			return fmt.Errorf("journal: unknown key %q", k)
		}
		if fmt.Sprint(got) != fmt.Sprint(a.Expect[k]) {
			return &AssertionError{
				Type:     AssertJournal,
				Expected: fmt.Sprintf("record %d %s = %v", a.Seq, k, a.Expect[k]),
				Actual:   fmt.Sprintf("record %d %s = %v", a.Seq, k, got),
				Trace:    trace,
			}
		}
	}
	return nil
}
