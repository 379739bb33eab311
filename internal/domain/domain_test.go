package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChoice_Valid(t *testing.T) {
	a, err := ParseChoice("a")
	require.NoError(t, err)
	assert.Equal(t, ChoiceA, a)

	b, err := ParseChoice("b")
	require.NoError(t, err)
	assert.Equal(t, ChoiceB, b)
}

func TestParseChoice_Invalid(t *testing.T) {
	for _, raw := range []string{"", "c", "A", "ab", "yes"} {
		_, err := ParseChoice(raw)
		assert.ErrorIs(t, err, ErrInvalidChoice, "raw=%q", raw)
	}
}

func TestVoterIDFor(t *testing.T) {
	assert.Equal(t, "user_7", VoterIDFor(7))
}

func TestCompetitionActive(t *testing.T) {
	c := Competition{Status: StatusActive}
	assert.True(t, c.Active())

	c.Status = StatusClosed
	assert.False(t, c.Active())

	c.Status = StatusActive
	c.IsArchived = true
	assert.False(t, c.Active())
}
