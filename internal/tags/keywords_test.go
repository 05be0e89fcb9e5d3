package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordsVocabularyHit(t *testing.T) {
	got := Keywords("What is the DERIVATIVE of x squared in calculus?")
	assert.Contains(t, got, "derivative")
	assert.Contains(t, got, "calculus")
}

func TestKeywordsCapAtFive(t *testing.T) {
	got := Keywords("algebra calculus geometry statistics probability equation matrix")
	require.Len(t, got, 5)
}

func TestKeywordsFallbackToLongestWords(t *testing.T) {
	got := Keywords("please summarize yesterdays discussion regarding homework")
	require.Len(t, got, 3)
	// longest words win, stopwords and short words never appear
	assert.Equal(t, []string{"yesterdays", "discussion", "summarize"}, got)
}

func TestKeywordsIgnoresShortAndStopwords(t *testing.T) {
	got := Keywords("what is the for and with this")
	assert.Empty(t, got)
}

func TestKeywordsEmptyInput(t *testing.T) {
	assert.Empty(t, Keywords(""))
	assert.Empty(t, Keywords("   \t\n"))
}

func TestKeywordsDeduplicates(t *testing.T) {
	got := Keywords("matrix matrix matrix")
	assert.Equal(t, []string{"matrix"}, got)
}
