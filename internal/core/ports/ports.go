package ports

import (
	"context"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// NotificationTarget receives the full malicious set whenever it changes.
// Implementations treat every delivery as a replacement of their blocklist.
type NotificationTarget interface {
	SetMaliciousPrefixes(ctx context.Context, names domain.NameSet) error
}

// NotificationTargetFunc adapts a function to NotificationTarget.
type NotificationTargetFunc func(ctx context.Context, names domain.NameSet) error

func (f NotificationTargetFunc) SetMaliciousPrefixes(ctx context.Context, names domain.NameSet) error {
	return f(ctx, names)
}

// TargetResolver produces a notification target for a monitor seen for the
// first time in a report. It returns false when the monitor cannot be reached.
type TargetResolver interface {
	Resolve(id domain.MonitorID) (NotificationTarget, bool)
}

// ControllerService is the surface the transports and the web layer use.
type ControllerService interface {
	// Report ingests one monitor report and runs a detection pass.
	Report(ctx context.Context, id domain.MonitorID, report domain.Report) error
	// RegisterMonitor binds a notification target; the first bound target wins.
	RegisterMonitor(id domain.MonitorID, target NotificationTarget)
	// Verdict returns the currently announced malicious set.
	Verdict() domain.NameSet
	// Monitors returns a snapshot of the registry.
	Monitors() []domain.MonitorInfo
	// Counters returns the counters of the running statistics period.
	Counters() domain.Counters
}
