package nlp

// Token is one annotated word or punctuation mark in document order.
type Token struct {
	Text  string
	Lemma string
	Tag   string
	Stop  bool
	Punct bool
}

// Chunk is a maximal noun-phrase span. Root is the grammatical head.
type Chunk struct {
	Text   string
	Tokens []Token
	Root   Token
}

// Document holds the annotations produced for one text.
type Document struct {
	Tokens []Token
	Chunks []Chunk
}

// Annotator turns raw text into tokens and noun chunks.
// Implementations must be safe for concurrent use once constructed.
type Annotator interface {
	Annotate(text string) (Document, error)
}
