package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, ClampLimit(-10))
	assert.Equal(t, 1, ClampLimit(0))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 50, ClampLimit(50))
	assert.Equal(t, 500, ClampLimit(500))
	assert.Equal(t, 500, ClampLimit(501))
	assert.Equal(t, 500, ClampLimit(99999))
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 5, 1, 8, 30, 15, 123456789, time.UTC)
	got := DecodeCursor(EncodeCursor(ts))
	require.NotNil(t, got)
	assert.True(t, got.Equal(ts))
}

func TestEncodeCursorNormalizesToUTC(t *testing.T) {
	zone := time.FixedZone("CEST", 2*3600)
	ts := time.Date(2025, 5, 1, 10, 30, 0, 0, zone)
	got := DecodeCursor(EncodeCursor(ts))
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(ts))
}

func TestDecodeCursorLenient(t *testing.T) {
	assert.Nil(t, DecodeCursor(""))
	assert.Nil(t, DecodeCursor("garbage"))
	assert.Nil(t, DecodeCursor("2025-13-45T99:00:00Z"))
	assert.Nil(t, DecodeCursor("1714552200"))
}
