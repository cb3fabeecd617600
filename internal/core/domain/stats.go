package domain

import "time"

// Signal names written to the statistics sink.
const (
	SignalNumReceived  = "NumReceived"
	SignalNumSent      = "NumSent"
	SignalSizeReceived = "SizeReceived"
	SignalSizeSent     = "SizeSent"
)

// Counters are the control-message counters of one statistics period.
type Counters struct {
	MessagesReceived int     `json:"messages_received"`
	MessagesSent     int     `json:"messages_sent"`
	BytesReceived    float64 `json:"bytes_received"`
	BytesSent        float64 `json:"bytes_sent"`
}

// IsZero reports whether nothing was counted.
func (c Counters) IsZero() bool {
	return c == Counters{}
}

// StatsRow is one line of the tabular statistics output.
type StatsRow struct {
	Time   float64 `json:"time"`
	Node   string  `json:"node"`
	Face   string  `json:"face"`
	Signal string  `json:"signal"`
	Value  float64 `json:"value"`
}

// StatsEmission is everything written for one period.
type StatsEmission struct {
	At       time.Time  `json:"at"`
	Elapsed  float64    `json:"elapsed"`
	Counters Counters   `json:"counters"`
	Rows     []StatsRow `json:"rows"`
}

// Rows expands counters into the four per-signal rows tagged with node.
func (c Counters) Rows(elapsed float64, node string) []StatsRow {
	return []StatsRow{
		{Time: elapsed, Node: node, Face: "all", Signal: SignalNumReceived, Value: float64(c.MessagesReceived)},
		{Time: elapsed, Node: node, Face: "all", Signal: SignalNumSent, Value: float64(c.MessagesSent)},
		{Time: elapsed, Node: node, Face: "all", Signal: SignalSizeReceived, Value: c.BytesReceived},
		{Time: elapsed, Node: node, Face: "all", Signal: SignalSizeSent, Value: c.BytesSent},
	}
}
