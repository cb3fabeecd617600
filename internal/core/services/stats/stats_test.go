package stats

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/telemetry"
)

type flakySink struct {
	mu     sync.Mutex
	fail   bool
	writes int
	closed bool
}

func (s *flakySink) WriteRows(rows []domain.StatsRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("no space left on device")
	}
	s.writes++
	return nil
}

func (s *flakySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReporter_EmitAndReset(t *testing.T) {
	start := time.Unix(1000, 0)
	r := NewReporter("CC", start)

	r.RecordReceived(108)
	r.RecordReceived(36)
	r.RecordSent(68)

	e, ok := r.Emit(start.Add(20*time.Second), 2)
	require.True(t, ok)
	assert.Equal(t, 20.0, e.Elapsed)
	assert.Equal(t, domain.Counters{MessagesReceived: 2, MessagesSent: 1, BytesReceived: 144, BytesSent: 68}, e.Counters)
	require.Len(t, e.Rows, 4)
	assert.Equal(t, domain.StatsRow{Time: 20, Node: "CC", Face: "all", Signal: domain.SignalSizeReceived, Value: 144}, e.Rows[2])

	assert.True(t, r.Counters().IsZero())
}

func TestReporter_SkipsIdlePeriod(t *testing.T) {
	r := NewReporter("CC", time.Now())
	_, ok := r.Emit(time.Now(), 0)
	assert.False(t, ok)
}

func TestRecurringTimer_StopPreventsFurtherTicks(t *testing.T) {
	var ticks atomic.Int32
	timer := NewRecurringTimer(5*time.Millisecond, func(time.Time) { ticks.Add(1) })
	timer.Start()
	timer.Start()

	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)
	timer.Stop()
	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())

	timer.Stop()
}

func TestRecurringTimer_StopWithoutStart(t *testing.T) {
	timer := NewRecurringTimer(time.Millisecond, func(time.Time) { t.Fatal("must not tick") })
	timer.Stop()
	timer.Start()
	time.Sleep(10 * time.Millisecond)
}

func TestSinkWriter_RecoversAfterFailure(t *testing.T) {
	telemetry.InitMetrics()
	failedBefore := testutil.ToFloat64(telemetry.StatsEmissions.WithLabelValues("failed"))

	sink := &flakySink{fail: true}
	w := NewSinkWriter(sink, 4, quietLogger())
	rows := domain.Counters{MessagesReceived: 1}.Rows(10, "CC")

	require.True(t, w.Enqueue(rows))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(telemetry.StatsEmissions.WithLabelValues("failed")) == failedBefore+1
	}, time.Second, time.Millisecond)

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	require.True(t, w.Enqueue(rows))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.Equal(t, 1, sink.writes)
	assert.True(t, sink.closed)
}

func TestSinkWriter_NilSinkDropsRows(t *testing.T) {
	w := NewSinkWriter(nil, 1, quietLogger())
	assert.False(t, w.Available())
	assert.False(t, w.Enqueue(domain.Counters{}.Rows(0, "CC")))
	assert.NoError(t, w.Close())
}
