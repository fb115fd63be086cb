package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\t b   c  "))
	assert.Empty(t, CollapseWhitespace(" \n "))
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdef", 3, "abc"},
		{"multibyte", "日本語のゲーム", 3, "日本語"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateRunes(tt.in, tt.max))
		})
	}
}

func TestBuildHeaders(t *testing.T) {
	h := BuildHeaders("", map[string]string{"Accept-Language": "de-DE"})

	assert.Equal(t, DefaultUserAgent, h.Get("User-Agent"))
	assert.Equal(t, "de-DE", h.Get("Accept-Language"))
}
