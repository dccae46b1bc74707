package msisdn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValidNumbers(t *testing.T) {
	for _, raw := range []string{"0820001001", "082 000 1001", "+27820001001", "27820001001", "0762564722"} {
		got, err := Normalize(raw)
		require.NoError(t, err, raw)
		assert.True(t, strings.HasPrefix(got, "+27"), raw)
		assert.Len(t, got, 12, raw)
	}

	got, err := Normalize("0820001001")
	require.NoError(t, err)
	assert.Equal(t, "+27820001001", got)
}

func TestNormalizeRejectsInvalidNumbers(t *testing.T) {
	for _, raw := range []string{"", "abc", "123", "08200010011234", "not a number", "0000000000"} {
		_, err := Normalize(raw)
		assert.ErrorIs(t, err, ErrInvalidPhoneNumber, raw)
		assert.ErrorIs(t, Validate(raw), ErrInvalidPhoneNumber, raw)
	}
}

func TestFromURN(t *testing.T) {
	got, err := FromURN("tel:27820001001")
	require.NoError(t, err)
	assert.Equal(t, "+27820001001", got)

	_, err = FromURN("27820001001")
	assert.ErrorIs(t, err, ErrInvalidURN)

	_, err = FromURN("tel:12")
	assert.ErrorIs(t, err, ErrInvalidPhoneNumber)
}
