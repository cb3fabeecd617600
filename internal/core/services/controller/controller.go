package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
	"github.com/lcalzada-xor/floodctl/internal/core/services/aggregation"
	"github.com/lcalzada-xor/floodctl/internal/core/services/detection"
	"github.com/lcalzada-xor/floodctl/internal/core/services/dispatch"
	"github.com/lcalzada-xor/floodctl/internal/core/services/stats"
	"github.com/lcalzada-xor/floodctl/internal/telemetry"
)

// DefaultNodeTag is the identity written in the Node column of the statistics output.
const DefaultNodeTag = "CC"

// Config holds the construction-time parameters of a controller.
type Config struct {
	Detection   domain.DetectionConfig
	StatsPeriod time.Duration
	// NodeTag identifies the controller in statistics rows.
	NodeTag string
	// SinkBuffer is how many pending emissions the sink writer may queue.
	SinkBuffer int
	// DeliveryTimeout bounds one push to one monitor and the final drain on Shutdown.
	DeliveryTimeout time.Duration
}

// Validate returns a ConfigError for unusable parameters.
func (c Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if c.StatsPeriod <= 0 {
		return domain.NewConfigError("stats_period", domain.ErrInvalidPeriod)
	}
	return nil
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTargetResolver sets how a monitor first seen in a report gets its notification target.
func WithTargetResolver(r ports.TargetResolver) Option {
	return func(c *Controller) { c.resolver = r }
}

// WithVerdictObserver adds an observer of announced verdicts.
func WithVerdictObserver(o ports.VerdictObserver) Option {
	return func(c *Controller) { c.verdictObservers = append(c.verdictObservers, o) }
}

// WithStatsObserver adds an observer of statistics emissions.
func WithStatsObserver(o ports.StatsObserver) Option {
	return func(c *Controller) { c.statsObservers = append(c.statsObservers, o) }
}

// WithoutTimer leaves the statistics timer stopped; emissions then only
// happen through EmitStats.
func WithoutTimer() Option {
	return func(c *Controller) { c.manualTicks = true }
}

// Controller is the central flooding detection controller. Monitors report
// to it, it aggregates their latest state, classifies names and announces
// changes of the malicious set back to every monitor.
//
// One mutex serializes every report cycle and statistics tick.
type Controller struct {
	cfg Config

	mu         sync.Mutex
	closed     bool
	state      *aggregation.State
	registry   *dispatch.MonitorRegistry
	dispatcher *dispatch.NotificationDispatcher
	reporter   *stats.Reporter

	detector *detection.AnomalyDetector
	courier  *dispatch.Courier
	events   *eventLoop
	writer   *stats.SinkWriter
	timer    *stats.RecurringTimer

	resolver         ports.TargetResolver
	verdictObservers []ports.VerdictObserver
	statsObservers   []ports.StatsObserver
	manualTicks      bool

	now          func() time.Time
	logger       *slog.Logger
	tracer       trace.Tracer
	shutdownOnce sync.Once
}

// New validates cfg and starts a controller writing statistics to sink.
// A nil sink is accepted: detection runs normally and emissions are skipped.
func New(cfg Config, sink ports.StatsSink, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.NodeTag == "" {
		cfg.NodeTag = DefaultNodeTag
	}
	if cfg.SinkBuffer <= 0 {
		cfg.SinkBuffer = 64
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = dispatch.DefaultDeliveryTimeout
	}

	detector, err := detection.NewAnomalyDetector(cfg.Detection)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:      cfg,
		state:    aggregation.NewState(),
		registry: dispatch.NewMonitorRegistry(),
		detector: detector,
		now:      time.Now,
		logger:   slog.Default(),
		tracer:   telemetry.Tracer("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.dispatcher = dispatch.NewNotificationDispatcher(c.registry, c.logger)
	c.courier = dispatch.NewCourier(c.logger,
		dispatch.WithDeliveryTimeout(cfg.DeliveryTimeout),
		dispatch.WithFailureHook(func(domain.MonitorID, error) { telemetry.DispatchFailures.Inc() }))
	c.events = newEventLoop()
	c.reporter = stats.NewReporter(cfg.NodeTag, c.now())
	c.writer = stats.NewSinkWriter(sink, cfg.SinkBuffer, c.logger)
	c.timer = stats.NewRecurringTimer(cfg.StatsPeriod, func(time.Time) { c.EmitStats() })
	if !c.manualTicks {
		c.timer.Start()
	}

	c.logger.Info("Controller started",
		"capacity", cfg.Detection.Capacity,
		"threshold", cfg.Detection.Threshold,
		"policy", detector.Config().Policy,
		"stats_period", cfg.StatsPeriod)
	return c, nil
}

// Report ingests one monitor report: the monitor is registered if unseen, its
// latest report is replaced, and a detection pass runs before Report returns.
// Duplicate or out-of-order reports are accepted.
//
// A changed verdict is queued for every bound monitor before Report returns.
// Delivery runs in the background and does not depend on ctx.
func (c *Controller) Report(ctx context.Context, id domain.MonitorID, report domain.Report) error {
	_, span := c.tracer.Start(ctx, "controller.Report", trace.WithAttributes(
		attribute.String("monitor", string(id)),
		attribute.Int("names", report.Len()),
	))
	defer span.End()
	started := time.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrControllerClosed
	}

	if _, bound := c.registry.Target(id); !bound {
		known := c.registry.Known(id)
		var target ports.NotificationTarget
		if c.resolver != nil {
			if t, ok := c.resolver.Resolve(id); ok {
				target = t
			}
		}
		c.registry.Register(id, target)
		if !known {
			c.logger.Info("Monitor registered", "monitor", id, "bound", target != nil)
		}
	}

	now := c.now()
	c.state.Apply(id, report, now)
	c.reporter.RecordReceived(report.WireSize())

	malicious := c.detector.Detect(c.state.LatestByMonitor())
	res := c.dispatcher.Dispatch(malicious)

	if res.Changed {
		c.reporter.RecordSent(res.WireSize)
		verdict := domain.Verdict{
			ID:          uuid.NewString(),
			AnnouncedAt: now,
			Names:       res.Set.Sorted(),
			Monitors:    res.Monitors,
			Delivered:   len(res.Deliveries),
		}
		// both queues preserve the order set by the mutex
		c.courier.Send(res.Deliveries, res.Set)
		c.events.post(func() {
			for _, o := range c.verdictObservers {
				o.OnVerdict(verdict)
			}
		})
		telemetry.MaliciousNames.Set(float64(len(res.Set)))

		c.logger.Info("Malicious set changed",
			"verdict", verdict.ID,
			"names", res.Set.Strings(),
			"monitors", res.Monitors,
			"unbound", len(res.Unbound))
	}
	registered := c.registry.Len()
	c.mu.Unlock()

	telemetry.ReportsReceived.Inc()
	telemetry.RegisteredMonitors.Set(float64(registered))
	telemetry.DetectionDuration.Observe(time.Since(started).Seconds())

	if res.Changed {
		telemetry.Dispatches.Inc()
		telemetry.DispatchFailures.Add(float64(len(res.Unbound)))
		span.SetAttributes(attribute.Int("malicious", len(res.Set)))
	}
	return nil
}

// RegisterMonitor records a monitor and binds its notification target.
// The first bound target wins; later calls are no-ops.
func (c *Controller) RegisterMonitor(id domain.MonitorID, target ports.NotificationTarget) {
	c.mu.Lock()
	bound := c.registry.Register(id, target)
	registered := c.registry.Len()
	c.mu.Unlock()

	telemetry.RegisteredMonitors.Set(float64(registered))
	if bound {
		c.logger.Debug("Monitor target bound", "monitor", id)
	}
}

// EmitStats closes the current statistics period. The recurring timer calls it;
// it is exported for callers that drive time themselves.
func (c *Controller) EmitStats() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	emission, ok := c.reporter.Emit(c.now(), c.state.PeriodTotal())
	c.state.ResetPeriod()
	if ok {
		// enqueue under the lock so it cannot race with Shutdown closing the writer
		c.writer.Enqueue(emission.Rows)
		c.events.post(func() {
			for _, o := range c.statsObservers {
				o.OnStats(emission)
			}
		})
	}
	c.mu.Unlock()

	if !ok {
		telemetry.StatsEmissions.WithLabelValues("skipped").Inc()
		c.logger.Debug("No reports this period, statistics skipped")
	}
}

// Verdict returns the currently announced malicious set.
func (c *Controller) Verdict() domain.NameSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatcher.Announced()
}

// Counters returns the counters of the running statistics period.
func (c *Controller) Counters() domain.Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reporter.Counters()
}

// LatestReport returns the stored report of a monitor.
func (c *Controller) LatestReport(id domain.MonitorID) (domain.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Latest(id)
}

// Monitors returns a snapshot of every registered monitor.
func (c *Controller) Monitors() []domain.MonitorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.registry.IDs()
	out := make([]domain.MonitorInfo, 0, len(ids))
	for _, id := range ids {
		_, bound := c.registry.Target(id)
		info := domain.MonitorInfo{
			ID:            id,
			Bound:         bound,
			LastReportAt:  c.state.ReceivedAt(id),
			PeriodReports: c.state.PeriodReports(id),
		}
		if r, ok := c.state.Latest(id); ok {
			info.TrackedNames = r.Len()
		}
		out = append(out, info)
	}
	return out
}

// Flush waits until every announcement and observer callback queued so far
// has been processed, or ctx ends.
func (c *Controller) Flush(ctx context.Context) error {
	if err := c.courier.Flush(ctx); err != nil {
		return err
	}
	return c.events.flush(ctx)
}

// Shutdown stops the statistics timer, gives pending announcements up to the
// delivery timeout, runs queued observer callbacks, then drains and closes
// the sink. No tick fires after it returns. Later calls do nothing.
func (c *Controller) Shutdown() error {
	var err error
	c.shutdownOnce.Do(func() {
		// the timer callback takes c.mu, so stop it before locking
		c.timer.Stop()

		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.courier.Close(c.cfg.DeliveryTimeout)
		c.events.close()
		err = c.writer.Close()
		c.logger.Info("Controller stopped")
	})
	return err
}
