package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("UTILS_TEST_SET", "value")

	assert.Equal(t, "value", GetEnvWithDefault("UTILS_TEST_SET", "fallback"))
	assert.Equal(t, "fallback", GetEnvWithDefault("UTILS_TEST_UNSET", "fallback"))
}

func TestCountTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "empty", input: "", want: 0},
		{name: "whitespace only", input: "  \t\n ", want: 0},
		{name: "single word", input: "hi", want: 1},
		{name: "two words", input: "hello world", want: 2},
		{name: "mixed whitespace", input: "a\tb\nc  d", want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountTokens(tt.input))
		})
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "short token fully masked", token: "abc", want: "****"},
		{name: "boundary length fully masked", token: "12345678", want: "****"},
		{name: "long token keeps edges", token: "sk-abcdefghijklmnop", want: "sk-a...mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskToken(tt.token))
		})
	}
}
