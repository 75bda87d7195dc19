package nlp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/jdkato/prose/v2"
)

const warmupText = "The engine is ready to annotate documents."

// Lemmatizer maps a lowercased word to its dictionary form.
type Lemmatizer interface {
	Lemma(word string) string
}

// Engine is the English annotator backed by prose (tokens, POS tags) and
// golem (lemmas). Build it once and share it; it holds no mutable state.
type Engine struct {
	lemmatizer Lemmatizer
	stopwords  StopwordSet
	// model is the tagger loaded by the warm-up; every document reuses it.
	model *prose.Model
}

type EngineOptions struct {
	// Stopwords overrides the embedded English list when non-nil.
	Stopwords StopwordSet
}

// NewEngine loads the lemma dictionary and the tagger model once. The warm-up
// annotation makes a broken model surface at startup instead of on the first
// document.
func NewEngine(options EngineOptions) (*Engine, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemma dictionary: %w", err)
	}
	stopwords := options.Stopwords
	if stopwords == nil {
		stopwords = EnglishStopwords()
	}
	warmup, err := prose.NewDocument(warmupText,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("warm up tagger: %w", err)
	}
	if warmup.Model == nil {
		return nil, errors.New("warm up tagger: no model loaded")
	}
	return &Engine{lemmatizer: lemmatizer, stopwords: stopwords, model: warmup.Model}, nil
}

func (engine *Engine) Annotate(text string) (Document, error) {
	if strings.TrimSpace(text) == "" {
		return Document{}, nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
		prose.UsingModel(engine.model),
	)
	if err != nil {
		return Document{}, fmt.Errorf("annotate text: %w", err)
	}

	proseTokens := doc.Tokens()
	tokens := make([]Token, 0, len(proseTokens))
	for _, proseToken := range proseTokens {
		tokens = append(tokens, engine.token(proseToken.Text, proseToken.Tag))
	}
	return Document{Tokens: tokens, Chunks: NounChunks(tokens)}, nil
}

func (engine *Engine) token(text, tag string) Token {
	lower := strings.ToLower(text)
	lemma := lower
	if engine.lemmatizer != nil && lower != "" {
		lemma = engine.lemmatizer.Lemma(lower)
	}
	return Token{
		Text:  text,
		Lemma: lemma,
		Tag:   tag,
		Stop:  engine.stopwords.Contains(lower),
		Punct: IsPunctuation(text, tag),
	}
}
