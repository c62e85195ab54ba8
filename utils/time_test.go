package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDayAndMonthUTC(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	at := time.Date(2024, time.March, 1, 2, 15, 0, 0, tehran)

	// 02:15 +03:30 is still the previous day in UTC
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), StartOfDayUTC(at))
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), StartOfMonthUTC(at))
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 7, DaysUntil(UTCNow().Add(7*24*time.Hour-time.Minute)))
	assert.Equal(t, 1, DaysUntil(UTCNow().Add(time.Hour)))
	assert.LessOrEqual(t, DaysUntil(UTCNow().Add(-36*time.Hour)), -1)
}
