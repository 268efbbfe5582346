package timeparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationEnglish(t *testing.T) {
	cases := map[string]int{
		"2 hours": 120,
		"2 hours 30 min": 150,
		"1hr": 60,
		"45 minutes": 45,
		"90 min": 90,
		"1.5 hours": 90,
		"Lunch, 1 hour": 60,
		"allow 20 mins": 20,
	}
	for in, want := range cases {
		got := ParseDuration(in)
		require.NotNil(t, got, in)
		assert.Equal(t, want, *got, in)
	}
}

func TestParseDurationSpanish(t *testing.T) {
	cases := map[string]int{
		"2 horas": 120,
		"45 minutos": 45,
		"1 hora 15 minutos": 75,
	}
	for in, want := range cases {
		got := ParseDuration(in)
		require.NotNil(t, got, in)
		assert.Equal(t, want, *got, in)
	}
}

func TestParseDurationBareIntegerFallback(t *testing.T) {
	got := ParseDuration("about 75 or so")
	require.NotNil(t, got)
	assert.Equal(t, 75, *got)
}

func TestParseDurationUnrecognizedIsNil(t *testing.T) {
	// nil, not zero: the caller owns the policy default
	assert.Nil(t, ParseDuration("a leisurely afternoon"))
	assert.Nil(t, ParseDuration(""))
}
