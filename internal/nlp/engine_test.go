package nlp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sharedEngine    *Engine
	sharedEngineErr error
	sharedOnce      sync.Once
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	sharedOnce.Do(func() {
		sharedEngine, sharedEngineErr = NewEngine(EngineOptions{})
	})
	require.NoError(t, sharedEngineErr)
	return sharedEngine
}

func tokenByText(doc Document, text string) (Token, bool) {
	for _, token := range doc.Tokens {
		if token.Text == text {
			return token, true
		}
	}
	return Token{}, false
}

func TestEngineLemmatizesAndFlagsTokens(t *testing.T) {
	engine := newTestEngine(t)

	doc, err := engine.Annotate("This is a test sentence. Another test.")
	require.NoError(t, err)

	is, ok := tokenByText(doc, "is")
	require.True(t, ok)
	assert.Equal(t, "be", is.Lemma)
	assert.True(t, is.Stop)

	this, ok := tokenByText(doc, "This")
	require.True(t, ok)
	assert.True(t, this.Stop)

	period, ok := tokenByText(doc, ".")
	require.True(t, ok)
	assert.True(t, period.Punct)

	kept := []string{}
	for _, token := range doc.Tokens {
		if !token.Stop && !token.Punct {
			kept = append(kept, token.Lemma)
		}
	}
	assert.Equal(t, []string{"test", "sentence", "test"}, kept)
}

func TestEngineReusesTaggerModel(t *testing.T) {
	engine := newTestEngine(t)
	require.NotNil(t, engine.model)
	model := engine.model

	for range 3 {
		_, err := engine.Annotate("Another short test.")
		require.NoError(t, err)
	}

	assert.Same(t, model, engine.model)
}

func TestEngineEmptyText(t *testing.T) {
	engine := newTestEngine(t)

	doc, err := engine.Annotate("  \n ")

	require.NoError(t, err)
	assert.Empty(t, doc.Tokens)
}
