package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

const topicPrefix = "VERDICT:"

// Topic is the subscription prefix of one monitor. The trailing newline
// keeps "A" from matching messages meant for "AB".
func Topic(id domain.MonitorID) []byte {
	return []byte(topicPrefix + string(id) + "\n")
}

// Notification is the payload pushed to a monitor.
type Notification struct {
	Monitor domain.MonitorID `json:"monitor"`
	Names   []domain.Name    `json:"names"`
	SentAt  time.Time        `json:"sent_at"`
}

// Publisher owns a PUB socket and hands out one notification target per
// monitor. Publishing never blocks: monitors that are not connected miss
// the message and catch up on the next change.
type Publisher struct {
	mu     sync.Mutex
	sock   mangos.Socket
	url    string
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher listens on url, e.g. "tcp://0.0.0.0:9100".
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("pub socket: %w", err)
	}
	if err := sock.Listen(url); err != nil {
		sock.Close()
		return nil, fmt.Errorf("listen %s: %w", url, err)
	}
	logger.Info("Notification publisher listening", "url", url)
	return &Publisher{sock: sock, url: url, logger: logger, now: time.Now}, nil
}

// URL returns the listen address.
func (p *Publisher) URL() string { return p.url }

// Resolve returns a target publishing on the monitor's topic. Every monitor
// is reachable through the publisher.
func (p *Publisher) Resolve(id domain.MonitorID) (ports.NotificationTarget, bool) {
	return ports.NotificationTargetFunc(func(ctx context.Context, names domain.NameSet) error {
		return p.Publish(id, names)
	}), true
}

// Publish sends the full set to one monitor.
func (p *Publisher) Publish(id domain.MonitorID, names domain.NameSet) error {
	body, err := json.Marshal(Notification{Monitor: id, Names: names.Sorted(), SentAt: p.now()})
	if err != nil {
		return err
	}
	msg := append(Topic(id), body...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sock == nil {
		return mangos.ErrClosed
	}
	return p.sock.Send(msg)
}

// Close shuts the socket down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sock == nil {
		return nil
	}
	err := p.sock.Close()
	p.sock = nil
	return err
}

var _ ports.TargetResolver = (*Publisher)(nil)
