package dispatch

import (
	"sort"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// MonitorRegistry maps monitor ids to their notification targets.
// A monitor may be known before it has a target (seen in a report but not
// reachable yet); once a target is bound it is never replaced.
// It is not safe for concurrent use; the controller serializes access.
type MonitorRegistry struct {
	targets map[domain.MonitorID]ports.NotificationTarget
}

// NewMonitorRegistry creates an empty registry.
func NewMonitorRegistry() *MonitorRegistry {
	return &MonitorRegistry{targets: make(map[domain.MonitorID]ports.NotificationTarget)}
}

// Register records id and binds target if none is bound yet.
// It returns true when this call bound the target.
func (r *MonitorRegistry) Register(id domain.MonitorID, target ports.NotificationTarget) bool {
	current, known := r.targets[id]
	if known && current != nil {
		return false
	}
	r.targets[id] = target
	return target != nil
}

// Known reports whether id was ever registered.
func (r *MonitorRegistry) Known(id domain.MonitorID) bool {
	_, ok := r.targets[id]
	return ok
}

// Target returns the bound target of id, if any.
func (r *MonitorRegistry) Target(id domain.MonitorID) (ports.NotificationTarget, bool) {
	t, ok := r.targets[id]
	return t, ok && t != nil
}

// IDs returns all registered monitors sorted by id.
func (r *MonitorRegistry) IDs() []domain.MonitorID {
	ids := make([]domain.MonitorID, 0, len(r.targets))
	for id := range r.targets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered monitors.
func (r *MonitorRegistry) Len() int { return len(r.targets) }
