package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// Subscriber receives the notifications of a single monitor.
type Subscriber struct {
	id     domain.MonitorID
	sock   mangos.Socket
	logger *slog.Logger
}

// NewSubscriber dials url and subscribes to the monitor's topic.
func NewSubscriber(url string, id domain.MonitorID, logger *slog.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("sub socket: %w", err)
	}
	if err := sock.Dial(url); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if err := sock.SetOption(mangos.OptionSubscribe, Topic(id)); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, 500*time.Millisecond); err != nil {
		sock.Close()
		return nil, err
	}
	return &Subscriber{id: id, sock: sock, logger: logger}, nil
}

// Run delivers every notification to target until ctx is done. Malformed
// messages are logged and skipped.
func (s *Subscriber) Run(ctx context.Context, target ports.NotificationTarget) error {
	topic := Topic(s.id)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := s.sock.Recv()
		if err != nil {
			if errors.Is(err, mangos.ErrRecvTimeout) {
				continue
			}
			if errors.Is(err, mangos.ErrClosed) {
				return nil
			}
			return err
		}
		if !bytes.HasPrefix(msg, topic) {
			continue
		}

		var n Notification
		if err := json.Unmarshal(msg[len(topic):], &n); err != nil {
			s.logger.Warn("Malformed notification", "error", err)
			continue
		}
		if err := target.SetMaliciousPrefixes(ctx, domain.NewNameSet(n.Names...)); err != nil {
			s.logger.Warn("Notification handler failed", "error", err)
		}
	}
}

// Close shuts the socket down, ending Run.
func (s *Subscriber) Close() error {
	return s.sock.Close()
}
