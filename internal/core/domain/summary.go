package domain

import "time"

// HistorySummary is the content of an exported controller report.
type HistorySummary struct {
	Title       string        `json:"title"`
	Node        string        `json:"node"`
	GeneratedAt time.Time     `json:"generated_at"`
	Current     []Name        `json:"current"`
	Counters    Counters      `json:"counters"`
	Monitors    []MonitorInfo `json:"monitors"`
	Verdicts    []Verdict     `json:"verdicts"`
}
