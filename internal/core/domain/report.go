package domain

import "time"

// Wire sizes used to estimate control message overhead, in bytes.
// A name travels in a fixed-width slot and every counter as a uint32.
const (
	NameWireSize  = 32
	CountWireSize = 4
)

// MonitorID identifies a distributed monitor.
type MonitorID string

// Report is the immutable state snapshot a monitor sends at the end of its
// observation window: how many PIT entries expired per tracked name.
type Report struct {
	monitorID  MonitorID
	observedAt time.Time
	timedOut   map[Name]uint32
}

// NewReport builds a report, copying the counts so later changes to the
// caller's map do not leak in.
func NewReport(monitorID MonitorID, timedOut map[Name]uint32, observedAt time.Time) Report {
	counts := make(map[Name]uint32, len(timedOut))
	for name, c := range timedOut {
		counts[name] = c
	}
	return Report{
		monitorID:  monitorID,
		observedAt: observedAt,
		timedOut:   counts,
	}
}

// MonitorID returns the reporting monitor.
func (r Report) MonitorID() MonitorID { return r.monitorID }

// ObservedAt returns the end of the observation window as stated by the monitor.
func (r Report) ObservedAt() time.Time { return r.observedAt }

// Len returns the number of tracked names.
func (r Report) Len() int { return len(r.timedOut) }

// TimedOut returns the expired-entry count for name, zero if untracked.
func (r Report) TimedOut(name Name) uint32 { return r.timedOut[name] }

// Each calls fn for every (name, count) pair in unspecified order.
func (r Report) Each(fn func(name Name, count uint32)) {
	for name, c := range r.timedOut {
		fn(name, c)
	}
}

// Counts returns a copy of the per-name counts.
func (r Report) Counts() map[Name]uint32 {
	out := make(map[Name]uint32, len(r.timedOut))
	for name, c := range r.timedOut {
		out[name] = c
	}
	return out
}

// WireSize estimates the encoded size of the report: the routing name and
// the entry count, followed by one (name, count) pair per tracked name.
func (r Report) WireSize() float64 {
	size := NameWireSize + CountWireSize
	size += len(r.timedOut) * (NameWireSize + CountWireSize)
	return float64(size)
}

// NotificationWireSize estimates the encoded size of a verdict push carrying set.
func NotificationWireSize(set NameSet) float64 {
	return float64(NameWireSize + CountWireSize + len(set)*NameWireSize)
}
