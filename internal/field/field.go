// Package field classifies raw document fields by the tag at the start of
// their code and decodes the descriptor they carry.
package field

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/host"
)

// Kind is the classification of a field.
type Kind int

const (
	KindCitation Kind = iota + 1
	KindBibliography
	KindTemp
)

func (k Kind) String() string {
	switch k {
	case KindCitation:
		return "citation"
	case KindBibliography:
		return "bibliography"
	case KindTemp:
		return "temp"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Descriptor is the result of classifying a code.
type Descriptor struct {
	Kind         Kind
	Citation     *citation.Citation
	Bibliography *citation.Bibliography
	// Corrupt marks a code that is neither a placeholder nor a decodable
	// citation or bibliography. Corrupt fields are never written.
	Corrupt bool
	// Err is the decode failure behind Corrupt, if any.
	Err error
}

// Classify inspects code. It never fails: anything unrecognised is TEMP.
func Classify(code string) Descriptor {
	trimmed := strings.TrimSpace(code)
	switch {
	case trimmed == citation.TempCode:
		return Descriptor{Kind: KindTemp}
	case citation.IsCitationCode(trimmed):
		c, err := citation.Unserialize(code)
		if err != nil {
			return Descriptor{Kind: KindTemp, Corrupt: true, Err: err}
		}
		return Descriptor{Kind: KindCitation, Citation: c}
	case citation.IsBibliographyCode(trimmed):
		b, err := citation.UnserializeBibliography(code)
		if err != nil {
			return Descriptor{Kind: KindTemp, Corrupt: true, Err: err}
		}
		return Descriptor{Kind: KindBibliography, Bibliography: b}
	default:
		return Descriptor{Kind: KindTemp, Corrupt: true}
	}
}

// Field is a document field with its code read and classified.
type Field struct {
	host.Field
	Code string
	Descriptor
}

// LoadExisting reads the code of hf and classifies it.
func LoadExisting(ctx context.Context, hf host.Field) (*Field, error) {
	code, err := hf.Code(ctx)
	if err != nil {
		return nil, fmt.Errorf("read field code: %w", err)
	}
	return &Field{Field: hf, Code: code, Descriptor: Classify(code)}, nil
}

// IsPlaceholder reports whether the field is an uncorrupted TEMP field.
func (f *Field) IsPlaceholder() bool {
	return f.Kind == KindTemp && !f.Corrupt
}
