package stats

import (
	"time"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// Reporter accumulates control-message counters for one statistics period
// and turns them into sink rows on every tick. It is not safe for concurrent
// use; the controller serializes access.
type Reporter struct {
	node     string
	start    time.Time
	counters domain.Counters
}

// NewReporter creates a reporter whose emission times are measured from start.
func NewReporter(node string, start time.Time) *Reporter {
	return &Reporter{node: node, start: start}
}

// RecordReceived counts one incoming message of the given wire size.
func (r *Reporter) RecordReceived(size float64) {
	r.counters.MessagesReceived++
	r.counters.BytesReceived += size
}

// RecordSent counts one outgoing message of the given wire size.
func (r *Reporter) RecordSent(size float64) {
	r.counters.MessagesSent++
	r.counters.BytesSent += size
}

// Counters returns the counters of the running period.
func (r *Reporter) Counters() domain.Counters { return r.counters }

// Emit closes the period at now. When no report arrived during the period the
// emission is skipped and ok is false; otherwise the counters are returned as
// rows and reset to zero.
func (r *Reporter) Emit(now time.Time, periodReports int) (emission domain.StatsEmission, ok bool) {
	if periodReports == 0 {
		return domain.StatsEmission{}, false
	}
	elapsed := now.Sub(r.start).Seconds()
	emission = domain.StatsEmission{
		At:       now,
		Elapsed:  elapsed,
		Counters: r.counters,
		Rows:     r.counters.Rows(elapsed, r.node),
	}
	r.counters = domain.Counters{}
	return emission, true
}
