package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuotaWindowsArePinnedToUTC(t *testing.T) {
	// 23:30 on June 1 in UTC+10 is still May 31 in UTC.
	loc := time.FixedZone("UTC+10", 10*3600)
	local := time.Date(2026, 6, 1, 23, 30, 0, 0, loc)

	day := StartOfDayUTC(local)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), day)

	month := StartOfMonthUTC(local)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), month)

	// The same instant expressed in UTC-11 falls on the previous UTC day.
	west := local.In(time.FixedZone("UTC-11", -11*3600))
	assert.Equal(t, day, StartOfDayUTC(west), "window start must not depend on the clock's zone")
}

func TestFromUnixSeconds(t *testing.T) {
	assert.True(t, FromUnixSeconds(0).IsZero())
	assert.True(t, FromUnixSeconds(-5).IsZero())
	assert.Equal(t, int64(1702592000), FromUnixSeconds(1702592000).Unix())
	assert.Equal(t, time.UTC, FromUnixSeconds(1702592000).Location())
}
