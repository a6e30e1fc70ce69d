package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "one citation"
style: http://www.zotero.org/styles/cell
items:
  - key: A
    title: title1
    authors: [{literal: "Author A"}]
steps:
  - command: addEditCitation
    cite: [A]
`

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/insert_then_edit.yaml")
	require.NoError(t, err)

	assert.Equal(t, "insert_then_edit", s.Name)
	assert.Empty(t, s.Style)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "Author A", s.Items[0].Authors[0].Literal)
	require.Len(t, s.Steps, 2)
	require.NotNil(t, s.Steps[1].Cursor)
	assert.Equal(t, 0, *s.Steps[1].Cursor)
	assert.Equal(t, "(Author B, n.d.)", s.Steps[1].Expect.Texts[0])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	assert.Error(t, err)
}

func TestParseScenario_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "    citee: [A]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{command: refresh}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps: [{command: refresh}]\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "unknown command",
			yaml: "name: n\ndescription: d\nsteps: [{command: frobnicate}]\n",
			want: `unknown command "frobnicate"`,
		},
		{
			name: "unknown cite key",
			yaml: "name: n\ndescription: d\nsteps: [{command: addCitation, cite: [X]}]\n",
			want: `unknown item key "X"`,
		},
		{
			name: "duplicate item key",
			yaml: "name: n\ndescription: d\nitems: [{key: A}, {key: A}]\nsteps: [{command: refresh}]\n",
			want: `duplicate key "A"`,
		},
		{
			name: "item without key",
			yaml: "name: n\ndescription: d\nitems: [{title: t}]\nsteps: [{command: refresh}]\n",
			want: "key is required",
		},
		{
			name: "update of unknown item",
			yaml: "name: n\ndescription: d\nsteps: [{command: refresh, update_items: [{key: Z}]}]\n",
			want: `unknown key "Z"`,
		},
		{
			name: "bad citation dialog",
			yaml: "name: n\ndescription: d\ncitation_dialog: nope\nsteps: [{command: refresh}]\n",
			want: "not a citation dialog",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nsteps: [{command: refresh}]\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "call_count without count",
			yaml: "name: n\ndescription: d\nsteps: [{command: refresh}]\nassertions: [{type: call_count, method: SetText}]\n",
			want: "call_count requires method and count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_ItemsAddedLaterCanBeCited(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: later
description: d
steps:
  - command: addCitation
    add_items: [{key: NEW, title: t}]
    cite: [NEW]
`))
	require.NoError(t, err)
	assert.Equal(t, "NEW", s.Steps[0].AddItems[0].Key)
}
