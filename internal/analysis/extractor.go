package analysis

import (
	"strings"

	"kratio/internal/nlp"
)

// Extractor turns raw text into normalized units in order of appearance.
type Extractor interface {
	Extract(text string) ([]Unit, error)
}

// WordExtractor yields one lowercased lemma per usable token.
type WordExtractor struct {
	Annotator nlp.Annotator
}

func (extractor WordExtractor) Extract(text string) ([]Unit, error) {
	doc, err := extractor.Annotator.Annotate(text)
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(doc.Tokens))
	for _, token := range doc.Tokens {
		if !usable(token) {
			continue
		}
		normalized := strings.TrimSpace(strings.ToLower(token.Lemma))
		if normalized == "" {
			continue
		}
		units = append(units, Unit(normalized))
	}
	return units, nil
}

// PhraseExtractor yields one lowercased noun phrase per chunk whose head is usable.
type PhraseExtractor struct {
	Annotator nlp.Annotator
}

func (extractor PhraseExtractor) Extract(text string) ([]Unit, error) {
	doc, err := extractor.Annotator.Annotate(text)
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(doc.Chunks))
	for _, chunk := range doc.Chunks {
		if !usable(chunk.Root) {
			continue
		}
		normalized := strings.TrimSpace(strings.ToLower(chunk.Text))
		if normalized == "" {
			continue
		}
		units = append(units, Unit(normalized))
	}
	return units, nil
}

func usable(token nlp.Token) bool {
	return !token.Stop && !token.Punct
}
