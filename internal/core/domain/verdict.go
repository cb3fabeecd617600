package domain

import "time"

// Verdict is one announced malicious set, as pushed to the monitors.
type Verdict struct {
	ID          string    `json:"id"`
	AnnouncedAt time.Time `json:"announced_at"`
	Names       []Name    `json:"names"`
	Monitors    int       `json:"monitors"`
	Delivered   int       `json:"delivered"` // bound monitors the set was queued to
}

// Set returns the verdict names as a set.
func (v Verdict) Set() NameSet {
	return NewNameSet(v.Names...)
}

// Cleared reports whether the verdict lifted every previous block.
func (v Verdict) Cleared() bool {
	return len(v.Names) == 0
}

// MonitorInfo is the registry view of a monitor.
type MonitorInfo struct {
	ID            MonitorID `json:"id"`
	Bound         bool      `json:"bound"`
	LastReportAt  time.Time `json:"last_report_at"`
	TrackedNames  int       `json:"tracked_names"`
	PeriodReports int       `json:"period_reports"`
}
