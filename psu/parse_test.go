package psu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	for _, resp := range []string{"1", "ON", "on", " ON "} {
		v, err := ParseBool(resp)
		require.NoError(t, err, resp)
		assert.True(t, v, resp)
	}

	for _, resp := range []string{"0", "OFF", "off"} {
		v, err := ParseBool(resp)
		require.NoError(t, err, resp)
		assert.False(t, v, resp)
	}

	_, err := ParseBool("MAYBE")
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseFloat(t *testing.T) {
	v, err := ParseFloat("12.345")
	require.NoError(t, err)
	assert.InDelta(t, 12.345, v, 1e-9)

	_, err = ParseFloat("12,345")
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseInt(t *testing.T) {
	v, err := ParseInt("8")
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	v, err = ParseInt("16.0")
	require.NoError(t, err)
	assert.Equal(t, 16, v)

	_, err = ParseInt("1.5")
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "12.345", FormatValue(12.345))
	assert.Equal(t, "0.000", FormatValue(0))
	assert.Equal(t, "1.500", FormatValue(1.5))
}
