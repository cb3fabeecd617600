package reporting

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

func TestPDFExporterExportHistory(t *testing.T) {
	exporter := NewPDFExporter()
	now := time.Now()

	summary := &domain.HistorySummary{
		Node:        "CC",
		GeneratedAt: now,
		Current:     []domain.Name{"/google.com"},
		Counters:    domain.Counters{MessagesReceived: 12, MessagesSent: 2, BytesReceived: 900, BytesSent: 140},
		Monitors: []domain.MonitorInfo{
			{ID: "router-1", Bound: true, LastReportAt: now, TrackedNames: 3},
			{ID: "router-2"},
		},
		Verdicts: []domain.Verdict{
			{ID: "v2", AnnouncedAt: now, Names: []domain.Name{"/google.com"}, Monitors: 2, Delivered: 1},
			{ID: "v1", AnnouncedAt: now.Add(-time.Minute), Monitors: 2, Delivered: 2},
		},
	}

	data, err := exporter.ExportHistory(summary)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestPDFExporterEmptyHistory(t *testing.T) {
	data, err := NewPDFExporter().ExportHistory(&domain.HistorySummary{Node: "CC", GeneratedAt: time.Now()})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestPDFExporterLongHistoryPaginates(t *testing.T) {
	summary := &domain.HistorySummary{Node: "CC", GeneratedAt: time.Now()}
	for i := 0; i < maxVerdictRows+20; i++ {
		summary.Verdicts = append(summary.Verdicts, domain.Verdict{
			ID:          fmt.Sprintf("v%d", i),
			AnnouncedAt: time.Now(),
			Names:       []domain.Name{domain.Name(fmt.Sprintf("/prefix-%d/with/a/rather/long/name/to/truncate", i))},
		})
	}
	data, err := NewPDFExporter().ExportHistory(summary)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
