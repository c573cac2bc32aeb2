package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const description = "Crime reports for the city of Berlin. " +
	"Each crime report lists the district and the crime category! " +
	"Updated monthly. " +
	"Contact the open data office for questions"

func TestSentences(t *testing.T) {
	got := Sentences(description)
	require.Len(t, got, 4)
	assert.Equal(t, "Updated monthly.", got[2])
	assert.Equal(t, "Contact the open data office for questions", got[3])
	assert.Nil(t, Sentences("   "))
}

func TestShortenKeepsOriginalOrder(t *testing.T) {
	r := NewRanker()
	got := r.Shorten(description, 2)
	assert.Equal(t, "Crime reports for the city of Berlin. Each crime report lists the district and the crime category!", got)
}

func TestShortenShortText(t *testing.T) {
	r := NewRanker()
	assert.Equal(t, "One line.", r.Shorten("  One line.  ", 3))
	assert.Empty(t, r.Shorten("", 3))
}

func TestBestSentence(t *testing.T) {
	r := NewRanker()
	sentences, best := r.Best(description, "How often is the data updated monthly?")
	require.Len(t, sentences, 4)
	assert.Equal(t, 2, best)

	_, best = r.Best(description, "the of and")
	assert.Equal(t, -1, best)
}
