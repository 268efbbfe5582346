package timeparse

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTimeFormats(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"09:00", 540},
		{"00:00", 0},
		{"23:59", 1439},
		{"0900", 540},
		{"905", 545},
		{"1430", 870},
		{"9 am", 540},
		{"9am", 540},
		{"12 am", 0},
		{"12 pm", 720},
		{"2:30 pm", 870},
		{"11:45 PM", 1425},
	}
	for _, tc := range cases {
		got, err := ParseClockTime(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseClockTimeRejectsOutOfRange(t *testing.T) {
	for _, in := range []string{"24:00", "12:60", "2500", "0:99", "13 pm", "0 am", "", "noon"} {
		_, err := ParseClockTime(in)
		require.Error(t, err, in)
		var pErr *ParseError
		assert.ErrorAs(t, err, &pErr, in)
	}
}

func TestFormatRoundTripsEveryMinute(t *testing.T) {
	for m := 0; m < MinutesPerDay; m++ {
		s := FormatClockTime(m)
		got, err := ParseClockTime(s)
		require.NoError(t, err, s)
		require.Equal(t, m, got, s)
	}
}

func TestFormatRoundTripsCanonicalStrings(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m += 7 {
			s := fmt.Sprintf("%02d:%02d", h, m)
			v, err := ParseClockTime(s)
			require.NoError(t, err)
			assert.Equal(t, s, FormatClockTime(v))
		}
	}
}

func TestFormatWrapsPastMidnight(t *testing.T) {
	// items ending after midnight wrap, by policy
	assert.Equal(t, "00:30", FormatClockTime(1470))
	assert.Equal(t, "00:00", FormatClockTime(1440))
	assert.Equal(t, "01:00", FormatClockTime(1440+60))
	assert.Equal(t, "23:00", FormatClockTime(-60))
}
