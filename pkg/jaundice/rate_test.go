package jaundice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setLexicon map[string]bool

func (s setLexicon) Contains(w string) bool { return s[w] }

func TestRate(t *testing.T) {
	lex := setLexicon{"шок": true, "ужас": true}

	tests := []struct {
		name     string
		lemmas   []string
		expected float64
	}{
		{"no_charged_words", []string{"test", "article"}, 0.0},
		{"half", []string{"шок", "новост"}, 50.0},
		{"all", []string{"ужас", "шок", "шок"}, 100.0},
		{"duplicates_count_each_time", []string{"шок", "шок", "a", "b"}, 50.0},
		{"case_sensitive", []string{"Шок"}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := Rate(tt.lemmas, lex)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, score, 1e-9)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		})
	}
}

func TestRate_NoWords(t *testing.T) {
	_, err := Rate(nil, setLexicon{"шок": true})
	assert.ErrorIs(t, err, ErrNoWords)

	_, err = Rate([]string{}, setLexicon{})
	assert.ErrorIs(t, err, ErrNoWords)
}
