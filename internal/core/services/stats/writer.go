package stats

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
	"github.com/lcalzada-xor/floodctl/internal/telemetry"
)

// SinkWriter moves statistics rows to a sink on its own goroutine so file
// I/O never blocks report handling. Failures are logged once until the sink
// recovers; lost rows are not retried.
type SinkWriter struct {
	sink   ports.StatsSink
	queue  chan []domain.StatsRow
	logger *slog.Logger

	failing   bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSinkWriter starts a writer for sink. A nil sink means the output could
// not be opened; every emission is then dropped after a single diagnostic.
func NewSinkWriter(sink ports.StatsSink, bufferSize int, logger *slog.Logger) *SinkWriter {
	if logger == nil {
		logger = slog.Default()
	}
	w := &SinkWriter{
		sink:   sink,
		queue:  make(chan []domain.StatsRow, bufferSize),
		logger: logger,
	}
	if sink == nil {
		w.logger.Warn("Statistics output unavailable, emissions will be skipped", "error", domain.ErrSinkUnavailable)
		telemetry.StatsEmissions.WithLabelValues("failed").Inc()
		return w
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Available reports whether a sink is attached.
func (w *SinkWriter) Available() bool { return w.sink != nil }

// Enqueue hands rows to the writer without blocking. It returns false when
// the rows were dropped (no sink, or the buffer is full).
func (w *SinkWriter) Enqueue(rows []domain.StatsRow) bool {
	if w.sink == nil {
		return false
	}
	select {
	case w.queue <- rows:
		return true
	default:
		w.logger.Warn("Statistics buffer full, dropping emission", "rows", len(rows))
		telemetry.StatsEmissions.WithLabelValues("dropped").Inc()
		return false
	}
}

func (w *SinkWriter) run() {
	defer w.wg.Done()
	for rows := range w.queue {
		w.write(rows)
	}
}

func (w *SinkWriter) write(rows []domain.StatsRow) {
	if err := w.sink.WriteRows(rows); err != nil {
		telemetry.StatsEmissions.WithLabelValues("failed").Inc()
		if !w.failing {
			w.failing = true
			w.logger.Error("Statistics write failed", "error", fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err))
		}
		return
	}
	if w.failing {
		w.failing = false
		w.logger.Info("Statistics output recovered")
	}
	telemetry.StatsEmissions.WithLabelValues("written").Inc()
}

// Close drains pending rows and closes the sink.
func (w *SinkWriter) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.queue)
		w.wg.Wait()
		if w.sink != nil {
			err = w.sink.Close()
		}
	})
	return err
}
