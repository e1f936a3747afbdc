package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCensorApply(t *testing.T) {
	req := require.New(t)
	c, err := New([]string{"badger", "snake"}, '*')
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		censored bool
	}{
		{
			name:     "simple word",
			input:    "the badger is here",
			expected: "the ****** is here",
			censored: true,
		},
		{
			name:     "uppercase",
			input:    "BADGER alert",
			expected: "****** alert",
			censored: true,
		},
		{
			name:     "split by spaces and dots",
			input:    "a b.a.d.g.e.r appears",
			expected: "a *********** appears",
			censored: true,
		},
		{
			name:     "multiple words",
			input:    "snake and badger",
			expected: "***** and ******",
			censored: true,
		},
		{
			name:     "trailing punctuation kept",
			input:    "I saw a badger!",
			expected: "I saw a ******!",
			censored: true,
		},
		{
			name:     "clean text untouched",
			input:    "nothing to see here",
			expected: "nothing to see here",
			censored: false,
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
			censored: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, censored := c.Apply(tt.input)
			require.Equal(t, tt.expected, got)
			require.Equal(t, tt.censored, censored)
		})
	}
}

func TestEmptyDictionaryPassesThrough(t *testing.T) {
	req := require.New(t)
	c, err := New(nil, '*')
	req.NoError(err)

	got, censored := c.Apply("badger badger badger")
	req.Equal("badger badger badger", got)
	req.False(censored)
}

func TestNilCensorPassesThrough(t *testing.T) {
	var c *Censor
	got, censored := c.Apply("anything")
	require.Equal(t, "anything", got)
	require.False(t, censored)
}
