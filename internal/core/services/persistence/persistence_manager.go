package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// PersistenceManager handles background batch writing of verdicts to storage.
type PersistenceManager struct {
	storage     ports.VerdictRepository
	persistChan chan domain.Verdict
	batchSize   int
	interval    time.Duration
	enabled     bool
	mu          sync.RWMutex
	logger      *slog.Logger
	done        chan struct{}
}

// NewPersistenceManager creates a new manager.
func NewPersistenceManager(storage ports.VerdictRepository, bufferSize int, logger *slog.Logger) *PersistenceManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistenceManager{
		storage:     storage,
		persistChan: make(chan domain.Verdict, bufferSize),
		batchSize:   100,
		interval:    5 * time.Second,
		enabled:     true,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// SetFlushInterval changes how often pending verdicts are written. Call before Start.
func (p *PersistenceManager) SetFlushInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// OnVerdict queues a verdict for persistence if enabled. It never blocks the
// detection path: when the queue is full the verdict is dropped.
func (p *PersistenceManager) OnVerdict(v domain.Verdict) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.enabled {
		return
	}
	select {
	case p.persistChan <- v:
	default:
		p.logger.Warn("Verdict history queue full, dropping verdict", "verdict", v.ID)
	}
}

// IsEnabled returns the current persistence status.
func (p *PersistenceManager) IsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

// SetEnabled toggles persistence.
func (p *PersistenceManager) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Start begins the persistence loop. Pending verdicts are flushed when ctx
// is cancelled; Done is closed afterwards.
func (p *PersistenceManager) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	buffer := make([]domain.Verdict, 0, p.batchSize)

	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case v := <-p.persistChan:
						buffer = append(buffer, v)
					default:
						p.flushBuffer(buffer)
						return
					}
				}
			case v := <-p.persistChan:
				buffer = append(buffer, v)
				if len(buffer) >= p.batchSize {
					p.flushBuffer(buffer)
					buffer = buffer[:0]
				}
			case <-ticker.C:
				if len(buffer) > 0 {
					p.flushBuffer(buffer)
					buffer = buffer[:0]
				}
			}
		}
	}()
}

// Done is closed once the loop has exited and the final flush is over.
func (p *PersistenceManager) Done() <-chan struct{} { return p.done }

func (p *PersistenceManager) flushBuffer(buffer []domain.Verdict) {
	if len(buffer) == 0 || p.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.storage.SaveVerdictsBatch(ctx, buffer); err != nil {
		p.logger.Error("Failed to batch save verdicts", "count", len(buffer), "error", err)
	}
}

var _ ports.VerdictObserver = (*PersistenceManager)(nil)
