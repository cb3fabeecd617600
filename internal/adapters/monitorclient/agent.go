package monitorclient

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// Uploader delivers a report to the controller.
type Uploader interface {
	Report(ctx context.Context, id domain.MonitorID, r domain.Report) error
}

// NotificationSource feeds controller verdicts into a target until ctx ends.
type NotificationSource interface {
	Run(ctx context.Context, target ports.NotificationTarget) error
}

// Agent is the monitor side of the control loop: it forwards local reports
// to the controller and keeps a blocklist in sync with the verdicts.
type Agent struct {
	id        domain.MonitorID
	uploader  Uploader
	source    NotificationSource
	blocklist *Blocklist
	logger    *slog.Logger

	mu     sync.Mutex
	sent   int
	failed int
}

// NewAgent builds an agent. source may be nil when the monitor does not
// listen for verdicts.
func NewAgent(id domain.MonitorID, uploader Uploader, source NotificationSource, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		id:        id,
		uploader:  uploader,
		source:    source,
		blocklist: NewBlocklist(),
		logger:    logger.With("monitor", id),
	}
}

// Blocklist returns the verdict copy maintained by the agent.
func (a *Agent) Blocklist() *Blocklist { return a.blocklist }

// Stats returns how many reports were delivered and how many failed.
func (a *Agent) Stats() (sent, failed int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sent, a.failed
}

// Listen applies verdicts to the blocklist until ctx is done.
func (a *Agent) Listen(ctx context.Context) error {
	if a.source == nil {
		<-ctx.Done()
		return nil
	}
	logged := ports.NotificationTargetFunc(func(ctx context.Context, names domain.NameSet) error {
		a.logger.Info("Blocklist replaced", "prefixes", names.Strings())
		return a.blocklist.SetMaliciousPrefixes(ctx, names)
	})
	return a.source.Run(ctx, logged)
}

// Forward reads the report feed and uploads every report. Upload failures
// are logged and do not stop the feed.
func (a *Agent) Forward(ctx context.Context, feed io.Reader) error {
	err := ReadFeed(ctx, feed, a.id, func(r domain.Report) error {
		err := a.uploader.Report(ctx, a.id, r)
		a.mu.Lock()
		if err != nil {
			a.failed++
		} else {
			a.sent++
		}
		a.mu.Unlock()
		if err != nil {
			a.logger.Warn("Report upload failed", "error", err)
		}
		return nil
	}, func(err error) {
		a.logger.Warn("Skipping malformed report", "error", err)
	})
	sent, failed := a.Stats()
	a.logger.Info("Report feed finished", "sent", sent, "failed", failed)
	return err
}
