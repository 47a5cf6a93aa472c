package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencySummarizer_PicksFrequentSentencesInOrder(t *testing.T) {
	text := "Rockets burn fuel. The weather was nice today. Rocket fuel is oxygen and kerosene. Rockets need fuel to reach orbit."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Rockets burn fuel. Rockets need fuel to reach orbit.", got)
}

func TestFrequencySummarizer_FewerSentencesThanMax(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("Only one sentence here.", 5)
	require.NoError(t, err)
	assert.Equal(t, "Only one sentence here.", got)
}

func TestFrequencySummarizer_Unpunctuated(t *testing.T) {
	s := NewFrequencySummarizer()
	got, err := s.Summarize("  so today we   talk about rockets  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "so today we talk about rockets", got)

	long := strings.Repeat("word ", 100)
	got, err = s.Summarize(long, 3)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, " …"))
	assert.Len(t, strings.Fields(got), unpunctuatedWords+1)
}

func TestFrequencySummarizer_Empty(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("", 3)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
