package monitorclient

import (
	"context"
	"sync"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// Blocklist is the monitor-side copy of the controller verdict. Each
// delivery replaces it wholesale.
type Blocklist struct {
	mu       sync.RWMutex
	prefixes domain.NameSet
	updates  int
}

// NewBlocklist returns an empty blocklist.
func NewBlocklist() *Blocklist {
	return &Blocklist{prefixes: domain.NewNameSet()}
}

// SetMaliciousPrefixes replaces the blocklist.
func (b *Blocklist) SetMaliciousPrefixes(_ context.Context, names domain.NameSet) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefixes = names.Clone()
	b.updates++
	return nil
}

// Blocked reports whether name falls under any blocked prefix.
func (b *Blocklist) Blocked(name domain.Name) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for prefix := range b.prefixes {
		if prefix.IsPrefixOf(name) {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current prefixes.
func (b *Blocklist) Snapshot() domain.NameSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.prefixes.Clone()
}

// Updates returns how many deliveries were applied.
func (b *Blocklist) Updates() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updates
}

var _ ports.NotificationTarget = (*Blocklist)(nil)
