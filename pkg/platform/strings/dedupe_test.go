package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single element",
			input:    []string{"Lumen Corp"},
			expected: []string{"Lumen Corp"},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  Ortiz ", "Lumen Corp  "},
			expected: []string{"Ortiz", "Lumen Corp"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"Ortiz", "Lumen Corp", "Ortiz"},
			expected: []string{"Ortiz", "Lumen Corp"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"Ortiz", "", "  ", "Lumen Corp"},
			expected: []string{"Ortiz", "Lumen Corp"},
		},
		{
			name:     "preserves case",
			input:    []string{"Ortiz", "ortiz", "ORTIZ"},
			expected: []string{"Ortiz", "ortiz", "ORTIZ"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DedupeAndTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
