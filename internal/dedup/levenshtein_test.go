package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"smith", "smith", 0},
		{"smith", "smithe", 1},
		{"smith", "smyth", 1},
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "Levenshtein(%q, %q)", tt.a, tt.b)
	}
}

func TestLevenshtein_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"acme builders", "acme builder"},
		{"pacific coast", "pacific cost"},
		{"a", "xyz"},
	}
	for _, p := range pairs {
		assert.Equal(t, Levenshtein(p[0], p[1]), Levenshtein(p[1], p[0]))
	}
}

func TestLevenshtein_TriangleSkipBound(t *testing.T) {
	// The finder skips pairs whose lengths differ by more than 3. The
	// distance of such a pair is always above 3, so skipping never hides
	// a reportable candidate.
	a := "short"
	b := "much longer name"
	assert.Greater(t, Levenshtein(a, b), 3)
	assert.Greater(t, len(b)-len(a), 3)
}
