package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet_ExcludesAmbiguousCharacters(t *testing.T) {
	for _, c := range "0O1lI" {
		assert.NotContains(t, Alphabet, string(c))
	}
}

func TestGenerate_LengthAndCharset(t *testing.T) {
	value, err := Generate(DefaultValueLength)
	require.NoError(t, err)
	assert.Len(t, value, DefaultValueLength)
	assert.NoError(t, ValidateValue(value))
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		value, err := Generate(DefaultValueLength)
		require.NoError(t, err)
		assert.False(t, seen[value], "duplicate token value generated: %s", value)
		seen[value] = true
	}
}

func TestGenerate_InvalidLength(t *testing.T) {
	_, err := Generate(0)
	assert.Error(t, err)

	_, err = Generate(-1)
	assert.Error(t, err)

	_, err = Generate(MaxValueLength + 1)
	assert.Error(t, err)
}

func TestValidateValue(t *testing.T) {
	assert.ErrorIs(t, ValidateValue(""), ErrEmptyValue)
	assert.ErrorIs(t, ValidateValue(strings.Repeat("a", 256)), ErrValueTooLong)
	assert.NoError(t, ValidateValue(strings.Repeat("a", 255)))

	// Ambiguous characters are rejected
	assert.ErrorIs(t, ValidateValue("abc0def"), ErrInvalidCharacter)
	assert.ErrorIs(t, ValidateValue("abcOdef"), ErrInvalidCharacter)
	assert.ErrorIs(t, ValidateValue("abc1def"), ErrInvalidCharacter)
	assert.ErrorIs(t, ValidateValue("abcldef"), ErrInvalidCharacter)
	assert.ErrorIs(t, ValidateValue("abcIdef"), ErrInvalidCharacter)

	// Anything outside the alphabet is rejected
	assert.ErrorIs(t, ValidateValue("abc-def"), ErrInvalidCharacter)
	assert.ErrorIs(t, ValidateValue("abc def"), ErrInvalidCharacter)

	assert.NoError(t, ValidateValue("xK9mP2vQ7wRt"))
}
