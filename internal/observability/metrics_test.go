package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsCounters(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordRequest("/checkin", "POST", 200, 15*time.Millisecond)
	m.RecordRequest("/checkin", "POST", 200, 5*time.Millisecond)
	m.RecordError("/checkin", "POST", "WRITE_FAILURE")
	m.RecordQueueConflict("camp-a")
	m.SetBoardSubscribers(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/checkin", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/checkin", "POST", "WRITE_FAILURE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queueConflicts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.boardSubscribers))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "INTERNAL_ERROR")
		m.RecordCheckin("CHECKED_IN", time.Millisecond)
		m.RecordQueueConflict("camp")
		m.SetBoardSubscribers(1)
	})
}
