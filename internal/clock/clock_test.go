package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedSetAndAdvance(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := NewFixed(base)

	assert.Equal(t, base, clk.Now())

	clk.Advance(48 * time.Hour)
	assert.Equal(t, base.Add(48*time.Hour), clk.Now())

	clk.Set(base)
	assert.Equal(t, base, clk.Now())
}

func TestParseISO(t *testing.T) {
	cases := map[string]time.Time{
		"2024-03-01T12:30:45Z":      time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
		"2024-03-01T12:30:45+02:00": time.Date(2024, 3, 1, 10, 30, 45, 0, time.UTC),
		"2024-03-01T12:30:45":       time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
		"2024-03-01":                time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got, err := ParseISO(input)
		require.NoError(t, err, input)
		assert.True(t, got.Equal(want), input)
	}
}

func TestParseISORejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "  ", "yesterday", "03/01/2024"} {
		_, err := ParseISO(input)
		assert.Error(t, err, input)
	}
}

func TestEquityDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2024-03-01 02:00 +09:00 is 2024-02-29 17:00 UTC
	assert.Equal(t, "2024-02-29", EquityDate(time.Date(2024, 3, 1, 2, 0, 0, 0, loc)))
}
