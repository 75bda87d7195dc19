package analysis

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"

	"kratio/internal/logging"
	"kratio/internal/nlp"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrNilAnnotator = errors.New("annotator is nil")

// Analyzer produces a frequency table for one document.
type Analyzer interface {
	Kind() Kind
	Analyze(text string) (Table, error)
}

type extractingAnalyzer struct {
	kind      Kind
	extractor Extractor
	logger    *logging.Logger
}

// New wires the extractor for kind to the table builder.
func New(kind Kind, annotator nlp.Annotator, logger *logging.Logger) (Analyzer, error) {
	if annotator == nil {
		return nil, ErrNilAnnotator
	}
	var extractor Extractor
	switch kind {
	case KindWord:
		extractor = WordExtractor{Annotator: annotator}
	case KindPhrase:
		extractor = PhraseExtractor{Annotator: annotator}
	default:
		return nil, fmt.Errorf("unknown analysis type %q", kind)
	}
	return &extractingAnalyzer{kind: kind, extractor: extractor, logger: logger}, nil
}

func (analyzer *extractingAnalyzer) Kind() Kind {
	return analyzer.kind
}

func (analyzer *extractingAnalyzer) Analyze(text string) (Table, error) {
	done := analyzer.logger.Timed(timingName(analyzer.kind), nil)
	units, err := analyzer.extractor.Extract(text)
	if err != nil {
		return Table{}, err
	}
	table := Build(units, analyzer.kind)
	done()
	analyzer.logger.Debug("table built", map[string]string{
		"kind":  analyzer.kind.String(),
		"units": strconv.Itoa(table.Total),
		"rows":  strconv.Itoa(len(table.Rows)),
	})
	return table, nil
}

func timingName(kind Kind) string {
	if kind == KindPhrase {
		return "analyzing noun chunks"
	}
	return "analyzing words"
}

type cachedAnalyzer struct {
	inner Analyzer
	cache *lru.Cache[[sha256.Size]byte, Table]
}

// NewCached memoizes tables by content hash so unchanged saves skip the
// linguistic pipeline. Cached tables share their Rows slice; callers must not
// mutate them.
func NewCached(inner Analyzer, size int) (Analyzer, error) {
	if inner == nil {
		return nil, errors.New("analyzer is nil")
	}
	if size <= 0 {
		return inner, nil
	}
	cache, err := lru.New[[sha256.Size]byte, Table](size)
	if err != nil {
		return nil, err
	}
	return &cachedAnalyzer{inner: inner, cache: cache}, nil
}

func (analyzer *cachedAnalyzer) Kind() Kind {
	return analyzer.inner.Kind()
}

func (analyzer *cachedAnalyzer) Analyze(text string) (Table, error) {
	key := sha256.Sum256([]byte(text))
	if table, ok := analyzer.cache.Get(key); ok {
		return table, nil
	}
	table, err := analyzer.inner.Analyze(text)
	if err != nil {
		return Table{}, err
	}
	analyzer.cache.Add(key, table)
	return table, nil
}
