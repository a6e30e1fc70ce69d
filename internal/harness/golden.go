package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/citesync/internal/canon"
)

// GoldenDir is where RunWithGolden keeps golden files by default.
const GoldenDir = "testdata/golden"

// Snapshot is the canonical JSON of a scenario run: the trace followed by
// the final document.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		m := map[string]any{
			"seq":  event.Seq,
			"step": event.Step,
			"kind": event.Kind,
			"name": event.Name,
		}
		if event.Field >= 0 {
			m["field"] = event.Field
		}
		if event.Detail != "" {
			m["detail"] = event.Detail
		}
		trace[i] = m
	}

	fields := make([]any, len(result.Document.Fields))
	for i, f := range result.Document.Fields {
		fields[i] = map[string]any{
			"code":      f.Code,
			"text":      f.Text,
			"rich":      f.Rich,
			"note_type": f.NoteType,
		}
	}

	indices := make([]any, len(result.NewIndices))
	for i, n := range result.NewIndices {
		indices[i] = n
	}

	return canon.Marshal(map[string]any{
		"scenario":    name,
		"trace":       trace,
		"data":        result.Document.Data,
		"fields":      fields,
		"new_indices": indices,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// {dir}/{scenario.Name}.golden, or testdata/golden when dir is empty.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, dir string) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result, dir); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result, dir string) error {
	t.Helper()

	snap, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := newGoldie(t, dir)
	g.Assert(t, name, snap)
	return nil
}

// UpdateGolden writes the golden file for a result.
func UpdateGolden(t *testing.T, name string, result *Result, dir string) error {
	t.Helper()

	snap, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	return newGoldie(t, dir).Update(t, name, snap)
}

func newGoldie(t *testing.T, dir string) *goldie.Goldie {
	if dir == "" {
		dir = GoldenDir
	}
	return goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
}
