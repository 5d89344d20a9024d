package period

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylog/babylog/internal/model"
)

func TestParseValidTokens(t *testing.T) {
	cases := map[string]time.Duration{
		"1h":   time.Hour,
		"24h":  24 * time.Hour,
		"168h": 168 * time.Hour,
		"1d":   24 * time.Hour,
		"7d":   7 * 24 * time.Hour,
		"365d": 365 * 24 * time.Hour,
	}
	for token, want := range cases {
		got, err := Parse(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}
}

func TestParseRejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{"", "h", "d", "7", "0h", "0d", "-3h", "-1d", "7w", "24m", "h7", "1.5h", "abc", " 7d"} {
		_, err := Parse(token)
		require.Error(t, err, token)
		assert.True(t, errors.Is(err, model.ErrInvalidPeriod), token)
	}
}

func TestParseLargeMagnitude(t *testing.T) {
	got, err := Parse("100000h")
	require.NoError(t, err)
	assert.Equal(t, 100000*time.Hour, got)
}

func TestHumanDeltaBands(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		age  time.Duration
		want string
	}{
		{5 * time.Second, "5s ago"},
		{59 * time.Second, "59s ago"},
		{60 * time.Second, "1m ago"},
		{12 * time.Minute, "12m ago"},
		{59 * time.Minute, "59m ago"},
		{time.Hour, "1h 00m ago"},
		{3*time.Hour + 5*time.Minute, "3h 05m ago"},
		{23*time.Hour + 59*time.Minute, "23h 59m ago"},
		{24 * time.Hour, "1d ago"},
		{49 * time.Hour, "2d ago"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, humanDelta(now.Add(-c.age), now), c.age.String())
	}
}

func TestHumanDeltaNormalizesZone(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := now.Add(-90 * time.Second).In(time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "1m ago", humanDelta(in, now))
}
