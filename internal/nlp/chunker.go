package nlp

import "strings"

// Penn Treebank tags that may appear inside a noun phrase.
var chunkTags = map[string]struct{}{
	"DT": {}, "PDT": {}, "PRP$": {}, "WP$": {}, "POS": {}, "CD": {},
	"JJ": {}, "JJR": {}, "JJS": {},
	"NN": {}, "NNS": {}, "NNP": {}, "NNPS": {},
	"VBN": {}, "VBG": {},
}

func isNounTag(tag string) bool {
	switch tag {
	case "NN", "NNS", "NNP", "NNPS":
		return true
	}
	return false
}

func isPronounTag(tag string) bool {
	return tag == "PRP" || tag == "WP"
}

// NounChunks groups tagged tokens into maximal noun phrases. A phrase is a run
// of chunk tags that ends on a noun; its head is the final noun. Personal
// pronouns form single-token chunks.
func NounChunks(tokens []Token) []Chunk {
	chunks := make([]Chunk, 0)
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		span := tokens[start:end]
		start = -1
		last := len(span) - 1
		for last >= 0 && !isNounTag(span[last].Tag) {
			last--
		}
		if last < 0 {
			return
		}
		span = span[:last+1]
		chunks = append(chunks, Chunk{
			Text:   joinTokens(span),
			Tokens: append([]Token(nil), span...),
			Root:   span[last],
		})
	}

	for index, token := range tokens {
		if isPronounTag(token.Tag) {
			flush(index)
			chunks = append(chunks, Chunk{
				Text:   token.Text,
				Tokens: []Token{token},
				Root:   token,
			})
			continue
		}
		if _, ok := chunkTags[token.Tag]; ok {
			// a determiner after a noun opens a new phrase
			if start >= 0 && (token.Tag == "DT" || token.Tag == "PDT") && isNounTag(tokens[index-1].Tag) {
				flush(index)
			}
			if start < 0 {
				start = index
			}
			continue
		}
		flush(index)
	}
	flush(len(tokens))
	return chunks
}

func joinTokens(tokens []Token) string {
	builder := strings.Builder{}
	for index, token := range tokens {
		if index > 0 && !attachesLeft(token.Text) {
			builder.WriteByte(' ')
		}
		builder.WriteString(token.Text)
	}
	return builder.String()
}

func attachesLeft(text string) bool {
	return strings.HasPrefix(text, "'") || strings.HasPrefix(text, "’") || text == "n't"
}
