package nlp

import (
	"bufio"
	_ "embed"
	"strings"
	"unicode"
)

//go:embed stopwords_en.txt
var englishStopwords string

// StopwordSet is a case-insensitive membership set.
type StopwordSet map[string]struct{}

// EnglishStopwords returns a fresh copy of the embedded English list.
func EnglishStopwords() StopwordSet {
	return ParseStopwords(englishStopwords)
}

// ParseStopwords reads one word per line; blank lines and '#' comments are skipped.
func ParseStopwords(payload string) StopwordSet {
	set := make(StopwordSet)
	scanner := bufio.NewScanner(strings.NewReader(payload))
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		set[word] = struct{}{}
	}
	return set
}

func (set StopwordSet) Contains(word string) bool {
	if set == nil {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(word))
	// curly apostrophes show up in pasted prose
	normalized = strings.ReplaceAll(normalized, "’", "'")
	_, ok := set[normalized]
	return ok
}

var punctuationTags = map[string]struct{}{
	".": {}, ",": {}, ":": {}, "``": {}, "''": {}, "\"": {},
	"(": {}, ")": {}, "-LRB-": {}, "-RRB-": {}, "#": {}, "$": {},
	"HYPH": {}, "NFP": {}, "SYM": {},
}

// IsPunctuation reports whether a token is punctuation, by tag or because
// every rune is a punctuation or symbol rune.
func IsPunctuation(text, tag string) bool {
	if _, ok := punctuationTags[tag]; ok {
		return true
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}
