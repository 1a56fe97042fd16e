package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/api/bookings", "POST", 201, 10*time.Millisecond)
	m.RecordRequest("/api/bookings", "POST", 201, 20*time.Millisecond)
	m.RecordError("/api/bookings", "POST", "CONFLICT")
	m.RecordBookingOp("create", "ok")
	m.RecordSweep(3, nil)
	m.RecordSweep(0, errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/bookings", "POST", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/api/bookings", "POST", "CONFLICT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingOps.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRuns.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweepCompleted))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordBookingOp("create", "ok")
		m.RecordSweep(1, nil)
	})
}
