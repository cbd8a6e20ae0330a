package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeriesInput(t *testing.T) {
	in := NewSeriesInput("  Loki ", -3, " ")
	assert.Equal(t, "Loki", in.Name)
	assert.Equal(t, 0, in.EpisodeCount)
	assert.Equal(t, PlaceholderImageURL, in.ImageURL)

	in = NewSeriesInput("Friends", 236, "https://img.example/friends.png")
	assert.Equal(t, 236, in.EpisodeCount)
	assert.Equal(t, "https://img.example/friends.png", in.ImageURL)
}

func TestNormalizeNameComposesUnicode(t *testing.T) {
	// "e" followed by a combining acute accent
	decomposed := "Poke\u0301mon"
	assert.Equal(t, "Pok\u00e9mon", NormalizeName(decomposed))
}

func TestParseEpisodeCount(t *testing.T) {
	tests := map[string]int{
		"12":    12,
		" 62 ":  62,
		"0":     0,
		"-4":    0,
		"":      0,
		"doce":  0,
		"3.5":   0,
		"99999": 99999,
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, ParseEpisodeCount(input))
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, NewSeriesInput("The Boys", 24, "").Validate())

	err := NewSeriesInput("   ", 24, "").Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSeriesRoundTripsThroughInput(t *testing.T) {
	s := Series{ID: "abc", Name: "Dark", EpisodeCount: 26, ImageURL: "u"}
	assert.Equal(t, s, s.Input().WithID("abc"))
}

func TestErrorCodes(t *testing.T) {
	for _, sentinel := range []error{ErrInvalidInput, ErrUnauthorized, ErrNotFound, ErrConflict, ErrRateLimited} {
		wrapped := fmt.Errorf("op: %w", sentinel)
		code := ErrorCode(wrapped)
		assert.True(t, errors.Is(ErrorForCode(code), sentinel), code)
	}
	assert.Equal(t, "internal", ErrorCode(errors.New("boom")))
	assert.Nil(t, ErrorForCode("internal"))
}
