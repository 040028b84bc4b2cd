package tagjson

import (
	"math"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Durations
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "PT0S"},
		{time.Second, "PT1S"},
		{-time.Second, "-PT1S"},
		{90 * time.Minute, "PT1H30M"},
		{1500 * time.Millisecond, "PT1.5S"},
		{25 * time.Hour, "PT25H"},
		{time.Nanosecond, "PT0.000000001S"},
		{time.Hour + time.Second, "PT1H1S"},
		{math.MinInt64, "-PT2562047H47M16.854775808S"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"PT0S", 0},
		{"PT1H30M", 90 * time.Minute},
		{"PT1.5S", 1500 * time.Millisecond},
		{"PT1,5S", 1500 * time.Millisecond},
		{"-PT1S", -time.Second},
		{"+PT1S", time.Second},
		{"P1D", 24 * time.Hour},
		{"P1W", 7 * 24 * time.Hour},
		{"P1DT1H", 25 * time.Hour},
		{"PT0.000000001S", time.Nanosecond},
		{"-PT2562047H47M16.854775808S", math.MinInt64},
		{"PT2562047H47M16.854775807S", math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, s := range []string{"", "P", "PT", "abc", "1H", "PT1.S", "PT2562047H47M16.854775808S", "PT9999999999999H"} {
		t.Run(s, func(t *testing.T) {
			_, err := parseDuration(s)
			assert.Error(t, err)
		})
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	for _, d := range []time.Duration{0, 1, -1, time.Hour, -36 * time.Hour, 1234567890123, math.MaxInt64, math.MinInt64} {
		got, err := parseDuration(formatDuration(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

// ============================================================
// Dates and Times
// ============================================================

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "+00:00", formatOffset(0))
	assert.Equal(t, "+01:00", formatOffset(3600))
	assert.Equal(t, "-05:30", formatOffset(-5*3600-30*60))
	assert.Equal(t, "+00:00:30", formatOffset(30))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "03:04:05", formatClock(civil.Time{Hour: 3, Minute: 4, Second: 5}))
	assert.Equal(t, "23:59:59.5", formatClock(civil.Time{Hour: 23, Minute: 59, Second: 59, Nanosecond: 500000000}))
}

func TestFormatZoned(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"utc", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05+00:00[dt.UTC]"},
		{"fixed", time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("", -3600)), "2024-01-02T03:04:05-01:00"},
		{"named", time.Date(2024, 7, 2, 3, 4, 5, 0, paris), "2024-07-02T03:04:05+02:00[Europe/Paris]"},
		{"fraction", time.Date(2024, 1, 2, 3, 4, 5, 250000000, time.UTC), "2024-01-02T03:04:05.25+00:00[dt.UTC]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatZoned(tt.t))
		})
	}
}

func TestParseZoned(t *testing.T) {
	got, err := parseZoned("2024-01-02T03:04:05+01:00", "Europe/Paris", false)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", got.Location().String())
	assert.True(t, got.Equal(time.Date(2024, 1, 2, 2, 4, 5, 0, time.UTC)))

	got, err = parseZoned("2024-01-02T03:04:05+00:00", "", true)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())

	got, err = parseZoned("2024-01-02T03:04:05-05:30", "", false)
	require.NoError(t, err)
	_, offset := got.Zone()
	assert.Equal(t, -5*3600-30*60, offset)

	_, err = parseZoned("2024-01-02T03:04:05+02:00", "Europe/Paris", false)
	assert.Error(t, err, "offset disagrees with zone")

	_, err = parseZoned("2024-01-02T03:04:05+01:00", "Nowhere/Special", false)
	assert.Error(t, err)
}
