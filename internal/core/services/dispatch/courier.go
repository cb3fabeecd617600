package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// DefaultDeliveryTimeout bounds a single push to one monitor.
const DefaultDeliveryTimeout = 5 * time.Second

// Courier carries announcements to monitors off the detection path. Each
// monitor has its own mailbox and worker, so a slow monitor only delays
// itself. A mailbox holds at most the newest pending set: announcements
// are full replacements, so an older undelivered set is superseded.
type Courier struct {
	ctx       context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
	logger    *slog.Logger
	onFailure func(domain.MonitorID, error)

	mu       sync.Mutex
	boxes    map[domain.MonitorID]*mailbox
	inflight int
	idle     chan struct{}
	closed   bool
	workers  sync.WaitGroup
}

type mailbox struct {
	id      domain.MonitorID
	target  ports.NotificationTarget
	mu      sync.Mutex
	pending domain.NameSet
	has     bool
	wake    chan struct{}
}

// CourierOption customizes a Courier.
type CourierOption func(*Courier)

// WithDeliveryTimeout sets the per-monitor push timeout.
func WithDeliveryTimeout(d time.Duration) CourierOption {
	return func(c *Courier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithFailureHook is told about every push that failed.
func WithFailureHook(fn func(domain.MonitorID, error)) CourierOption {
	return func(c *Courier) { c.onFailure = fn }
}

// NewCourier starts an idle courier. Close releases its workers.
func NewCourier(logger *slog.Logger, opts ...CourierOption) *Courier {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Courier{
		ctx:     ctx,
		cancel:  cancel,
		timeout: DefaultDeliveryTimeout,
		logger:  logger,
		boxes:   make(map[domain.MonitorID]*mailbox),
		idle:    make(chan struct{}),
	}
	close(c.idle)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send queues set for every delivery. Calls made in sequence reach each
// monitor in the same sequence. Send never blocks on a monitor.
func (c *Courier) Send(deliveries []Delivery, set domain.NameSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, d := range deliveries {
		box, ok := c.boxes[d.Monitor]
		if !ok {
			box = &mailbox{id: d.Monitor, target: d.Target, wake: make(chan struct{}, 1)}
			c.boxes[d.Monitor] = box
			c.workers.Add(1)
			go c.work(box)
		}
		if box.put(set.Clone()) {
			if c.inflight == 0 {
				c.idle = make(chan struct{})
			}
			c.inflight++
		}
	}
}

// Flush waits until every queued announcement has been attempted.
func (c *Courier) Flush(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits up to grace for pending announcements, then abandons the rest
// and stops every worker. Later calls do nothing.
func (c *Courier) Close(grace time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	if err := c.Flush(ctx); err != nil {
		c.logger.Warn("Abandoning undelivered announcements", "error", err)
	}
	cancel()

	c.cancel()
	c.workers.Wait()

	c.mu.Lock()
	if c.inflight > 0 {
		c.inflight = 0
		close(c.idle)
	}
	c.mu.Unlock()
}

// put stores set as the newest pending announcement. It reports whether the
// mailbox was empty, i.e. whether a new delivery is now owed.
func (b *mailbox) put(set domain.NameSet) bool {
	b.mu.Lock()
	fresh := !b.has
	b.pending = set
	b.has = true
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
	return fresh
}

func (b *mailbox) take() (domain.NameSet, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has {
		return nil, false
	}
	set := b.pending
	b.pending, b.has = nil, false
	return set, true
}

func (c *Courier) work(box *mailbox) {
	defer c.workers.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-box.wake:
		}
		for {
			set, ok := box.take()
			if !ok {
				break
			}
			c.deliver(box, set)
			c.finish()
		}
	}
}

func (c *Courier) deliver(box *mailbox, set domain.NameSet) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	if err := box.target.SetMaliciousPrefixes(ctx, set); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrUnknownMonitor, err)
		c.logger.Warn("Skipping unreachable monitor", "monitor", box.id, "error", err)
		if c.onFailure != nil {
			c.onFailure(box.id, err)
		}
		return
	}
	c.logger.Debug("Announcement delivered", "monitor", box.id, "names", len(set))
}

func (c *Courier) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
}
