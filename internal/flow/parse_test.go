package flow

import (
	"testing"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDateRange(t *testing.T) {
	cases := []struct {
		in         string
		start, end time.Time
	}{
		{"10/06/2024 to 12/06/2024", day(2024, 6, 10), day(2024, 6, 12)},
		{"10/06/2024 - 12/06/2024", day(2024, 6, 10), day(2024, 6, 12)},
		{"2024-06-10 to 2024-06-12", day(2024, 6, 10), day(2024, 6, 12)},
		{"2024-06-10 - 2024-06-12", day(2024, 6, 10), day(2024, 6, 12)},
		{"10/06 to 12/06", day(2024, 6, 10), day(2024, 6, 12)},
		{"5/7/2024", day(2024, 7, 5), day(2024, 7, 5)},
		{"2024-06-10", day(2024, 6, 10), day(2024, 6, 10)},
	}
	for _, c := range cases {
		r, err := ParseDateRange(c.in, now)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.start, r.Start, c.in)
		assert.Equal(t, c.end, r.End, c.in)
	}

	for _, bad := range []string{"", "tomorrow", "31/02/2024", "12/06/2024 to 10/06/2024", "30/02"} {
		_, err := ParseDateRange(bad, now)
		assert.ErrorIs(t, err, apperr.ErrMalformedInput, bad)
	}
}

func TestParseHourRange(t *testing.T) {
	hr, err := ParseHourRange("17:00 to 19:30")
	require.NoError(t, err)
	assert.Equal(t, 2.5, hr.Hours())

	hr, err = ParseHourRange("5pm-7pm")
	require.NoError(t, err)
	assert.Equal(t, "17:00", hr.From.String())
	assert.Equal(t, "19:00", hr.To.String())

	_, err = ParseHourRange("19:00 to 17:00")
	assert.ErrorIs(t, err, apperr.ErrMalformedInput)
	_, err = ParseHourRange("evening")
	assert.ErrorIs(t, err, apperr.ErrMalformedInput)
}

func TestParseAmount(t *testing.T) {
	cents, err := ParseAmount("$1,234.56")
	require.NoError(t, err)
	assert.Equal(t, int64(123456), cents)
	assert.Equal(t, "1234.56", FormatCents(cents))

	cents, err = ParseAmount("0.005")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cents)

	for _, bad := range []string{"0", "-5", "abc", "", "NaN", "nan", "Inf", "-Inf", "0.004"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, apperr.ErrMalformedInput, bad)
	}
}

func TestParseWorkHours(t *testing.T) {
	for in, want := range map[string]float64{"2": 2, "1.5": 1.5, "1:30": 1.5, "8h": 8, "0:20": 0.33} {
		got, err := ParseWorkHours(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"0", "-1", "25", "NaN", "nan", "Inf", "+Inf", "0.001", "1:75", "many"} {
		_, err := ParseWorkHours(bad)
		assert.ErrorIs(t, err, apperr.ErrMalformedInput, bad)
	}
}
