package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestSetLocationOpen(t *testing.T) {
	SetLocationOpen("GISHUSHU", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(locationOpen.WithLabelValues("GISHUSHU")))

	SetLocationOpen("GISHUSHU", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(locationOpen.WithLabelValues("GISHUSHU")))
}

func TestIncCalendarCache(t *testing.T) {
	before := testutil.ToFloat64(calendarCache.WithLabelValues("hit"))
	IncCalendarCache(true)
	assert.Equal(t, before+1, testutil.ToFloat64(calendarCache.WithLabelValues("hit")))
}

func TestIncCalendarCacheError(t *testing.T) {
	before := testutil.ToFloat64(calendarCache.WithLabelValues("error"))
	IncCalendarCacheError()
	assert.Equal(t, before+1, testutil.ToFloat64(calendarCache.WithLabelValues("error")))
}

func TestSetSnapshot(t *testing.T) {
	SetSnapshot(1700000000, 14, 3)
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(snapshotLoadedAt))
	assert.Equal(t, 14.0, testutil.ToFloat64(snapshotSize.WithLabelValues("schedules")))
	assert.Equal(t, 3.0, testutil.ToFloat64(snapshotSize.WithLabelValues("exceptions")))
}
