package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and strips punctuation",
			text: "Bala Nemani is the CEO!",
			want: []string{"bala", "nemani", "ceo"},
		},
		{
			name: "removes stop words",
			text: "who is the head of the department",
			want: []string{"who", "head", "department"},
		},
		{
			name: "keeps two letter tokens",
			text: "the VP of sales",
			want: []string{"vp", "sales"},
		},
		{
			name: "drops single rune tokens",
			text: "a b c data",
			want: []string{"data"},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "digits survive",
			text: "joined in 2019, office 12b",
			want: []string{"joined", "2019", "office", "12b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenize_IndexAndQueryAgree(t *testing.T) {
	// The same normalisation must apply at index time and query time.
	text := "Bala Nemani is the CEO"
	query := "who is the CEO?"

	indexed := Tokenize(text)
	queried := Tokenize(query)

	assert.Contains(t, indexed, "ceo")
	assert.Contains(t, queried, "ceo")
}

func TestWords_KeepsStopWords(t *testing.T) {
	words := Words("What about her background?")
	assert.Equal(t, []string{"what", "about", "her", "background"}, words)
}

func TestUniqueTokens(t *testing.T) {
	tokens := UniqueTokens("sales team sales TEAM sales")
	assert.Equal(t, []string{"sales", "team"}, tokens)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("her"))
	assert.False(t, IsStopWord("ceo"))
}
