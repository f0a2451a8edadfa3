package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	utilsTime := Now()
	standardTime := time.Now().UTC()

	assert.WithinDuration(t, standardTime, utilsTime, 10*time.Millisecond)
	assert.Equal(t, time.UTC, utilsTime.Location())
}

func TestFormatISO8601(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2025, 3, 14, 15, 30, 0, 123456000, ist)

	assert.Equal(t, "2025-03-14T10:00:00Z", FormatISO8601(ts))
}
