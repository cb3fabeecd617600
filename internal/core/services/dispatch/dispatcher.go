package dispatch

import (
	"log/slog"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// Delivery is one bound monitor that must receive the announcement.
type Delivery struct {
	Monitor domain.MonitorID
	Target  ports.NotificationTarget
}

// Result describes one dispatch pass.
type Result struct {
	// Changed is false when the set matched the last announcement and nothing is sent.
	Changed bool
	Set     domain.NameSet
	// Monitors is the registry size at the time of the pass.
	Monitors   int
	Deliveries []Delivery
	// Unbound lists monitors skipped because they have no target yet.
	Unbound []domain.MonitorID
	// WireSize is the estimated size of the one outgoing control message.
	WireSize float64
}

// NotificationDispatcher decides when the malicious set must be announced
// and to whom. It performs no I/O; the Courier carries the announcement.
type NotificationDispatcher struct {
	registry  *MonitorRegistry
	announced domain.NameSet
	logger    *slog.Logger
}

// NewNotificationDispatcher creates a dispatcher that starts from an empty announcement.
func NewNotificationDispatcher(registry *MonitorRegistry, logger *slog.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationDispatcher{
		registry:  registry,
		announced: make(domain.NameSet),
		logger:    logger,
	}
}

// Announced returns a copy of the last announced set.
func (d *NotificationDispatcher) Announced() domain.NameSet {
	return d.announced.Clone()
}

// Dispatch compares set with the last announcement and, on any difference,
// records it and returns every bound monitor in registry order.
func (d *NotificationDispatcher) Dispatch(set domain.NameSet) Result {
	if set.Equal(d.announced) {
		return Result{Set: d.announced.Clone()}
	}

	next := set.Clone()
	d.announced = next

	res := Result{
		Changed:  true,
		Set:      next.Clone(),
		WireSize: domain.NotificationWireSize(next),
	}
	for _, id := range d.registry.IDs() {
		res.Monitors++
		target, ok := d.registry.Target(id)
		if !ok {
			d.logger.Warn("Skipping unbound monitor", "monitor", id, "error", domain.ErrUnknownMonitor)
			res.Unbound = append(res.Unbound, id)
			continue
		}
		res.Deliveries = append(res.Deliveries, Delivery{Monitor: id, Target: target})
	}
	return res
}
