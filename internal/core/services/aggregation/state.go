package aggregation

import (
	"sort"
	"time"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// State keeps the most recent report of every monitor that ever reported and
// how many reports each one sent during the current statistics period.
// It is not safe for concurrent use; the controller serializes access.
type State struct {
	latest       map[domain.MonitorID]domain.Report
	receivedAt   map[domain.MonitorID]time.Time
	periodCounts map[domain.MonitorID]int
}

// NewState creates an empty aggregation state.
func NewState() *State {
	return &State{
		latest:       make(map[domain.MonitorID]domain.Report),
		receivedAt:   make(map[domain.MonitorID]time.Time),
		periodCounts: make(map[domain.MonitorID]int),
	}
}

// Apply overwrites the latest report for id and bumps its period tally.
// Arrival order relative to other monitors is irrelevant.
func (s *State) Apply(id domain.MonitorID, report domain.Report, at time.Time) {
	s.latest[id] = report
	s.receivedAt[id] = at
	s.periodCounts[id]++
}

// Latest returns the stored report for id.
func (s *State) Latest(id domain.MonitorID) (domain.Report, bool) {
	r, ok := s.latest[id]
	return r, ok
}

// LatestByMonitor returns a shallow copy of the latest-report map.
// Reports are immutable, so sharing them is safe.
func (s *State) LatestByMonitor() map[domain.MonitorID]domain.Report {
	out := make(map[domain.MonitorID]domain.Report, len(s.latest))
	for id, r := range s.latest {
		out[id] = r
	}
	return out
}

// ReceivedAt returns when the latest report of id arrived.
func (s *State) ReceivedAt(id domain.MonitorID) time.Time {
	return s.receivedAt[id]
}

// PeriodReports returns how many reports id sent this period.
func (s *State) PeriodReports(id domain.MonitorID) int {
	return s.periodCounts[id]
}

// PeriodTotal returns the number of reports received this period.
func (s *State) PeriodTotal() int {
	total := 0
	for _, c := range s.periodCounts {
		total += c
	}
	return total
}

// ResetPeriod clears the period tally. Latest reports are kept.
func (s *State) ResetPeriod() {
	s.periodCounts = make(map[domain.MonitorID]int)
}

// Monitors lists every monitor that has reported, sorted by id.
func (s *State) Monitors() []domain.MonitorID {
	ids := make([]domain.MonitorID, 0, len(s.latest))
	for id := range s.latest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of monitors with a stored report.
func (s *State) Len() int { return len(s.latest) }
