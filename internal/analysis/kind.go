package analysis

import (
	"fmt"
	"strings"
)

// Unit is a normalized, case-folded word lemma or noun phrase.
type Unit string

// Kind selects which analyzer variant runs.
type Kind string

const (
	KindWord   Kind = "word"
	KindPhrase Kind = "phrase"
)

// ParseKind accepts the canonical names plus the historical CLI spellings.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "word", "words", "keyword", "keywords":
		return KindWord, nil
	case "phrase", "phrases", "noun_chunks", "noun-chunks", "nounchunks":
		return KindPhrase, nil
	default:
		return "", fmt.Errorf("unknown analysis type %q (want word or phrase)", value)
	}
}

// Label is the unit column name used by renderers and serializers.
func (kind Kind) Label() string {
	if kind == KindPhrase {
		return "Noun Chunk"
	}
	return "Keyword"
}

// ColumnPrefix prefixes the Frequency and Density column names.
func (kind Kind) ColumnPrefix() string {
	if kind == KindPhrase {
		return "NounChunk"
	}
	return "Word"
}

func (kind Kind) String() string {
	return string(kind)
}
