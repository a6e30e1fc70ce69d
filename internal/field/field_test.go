package field

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/host/memhost"
)

const citationCode = `ITEM CSL_CITATION {"citationID":"c1","properties":{"plainCitation":"(A, 2000)","noteIndex":0},"citationItems":[{"id":1}]}`

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		kind    Kind
		corrupt bool
	}{
		{"current citation", citationCode, KindCitation, false},
		{"older citation", `ITEM {"citationID":"c2","properties":{"noteIndex":0},"citationItems":[]}`, KindCitation, false},
		{"bibliography", `BIBL {"uncited":[],"omitted":[],"custom":[]} CSL_BIBLIOGRAPHY`, KindBibliography, false},
		{"bare bibliography", "BIBL", KindBibliography, false},
		{"placeholder", "TEMP", KindTemp, false},
		{"empty", "", KindTemp, true},
		{"foreign", "ADDIN EN.CITE", KindTemp, true},
		{"broken citation", "ITEM CSL_CITATION {oops", KindTemp, true},
		{"broken bibliography", "BIBL {oops} CSL_BIBLIOGRAPHY", KindTemp, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.code)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.corrupt, d.Corrupt)
			if tt.kind == KindCitation {
				assert.NotNil(t, d.Citation)
			} else {
				assert.Nil(t, d.Citation)
			}
		})
	}
}

func TestClassify_BrokenCitationKeepsError(t *testing.T) {
	d := Classify("ITEM CSL_CITATION {oops")
	assert.Error(t, d.Err)
}

func TestLoadExisting_Idempotent(t *testing.T) {
	ctx := context.Background()
	doc := memhost.NewDocument()
	hf := doc.AppendField(citationCode, "(A, 2000)")

	first, err := LoadExisting(ctx, hf)
	require.NoError(t, err)
	second, err := LoadExisting(ctx, hf)
	require.NoError(t, err)

	assert.Equal(t, first.Descriptor, second.Descriptor)
	assert.Equal(t, "c1", first.Citation.CitationID)
	assert.False(t, first.IsPlaceholder())
}

func TestField_IsPlaceholder(t *testing.T) {
	ctx := context.Background()
	doc := memhost.NewDocument()

	f, err := LoadExisting(ctx, doc.AppendField("TEMP", "{Placeholder}"))
	require.NoError(t, err)
	assert.True(t, f.IsPlaceholder())

	f, err = LoadExisting(ctx, doc.AppendField("junk", "x"))
	require.NoError(t, err)
	assert.False(t, f.IsPlaceholder())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "citation", KindCitation.String())
	assert.Equal(t, "bibliography", KindBibliography.String())
	assert.Equal(t, "temp", KindTemp.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
