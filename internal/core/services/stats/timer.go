package stats

import (
	"sync"
	"time"
)

// RecurringTimer calls fn once per period until stopped.
// After Stop returns fn is never invoked again.
type RecurringTimer struct {
	period time.Duration
	fn     func(time.Time)

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewRecurringTimer creates a stopped timer.
func NewRecurringTimer(period time.Duration, fn func(time.Time)) *RecurringTimer {
	return &RecurringTimer{
		period: period,
		fn:     fn,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the tick loop. Calling it again has no effect.
func (t *RecurringTimer) Start() {
	t.startOnce.Do(func() {
		go t.loop()
	})
}

func (t *RecurringTimer) loop() {
	defer close(t.done)
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			// stop wins over a tick that raced with it
			select {
			case <-t.stop:
				return
			default:
			}
			t.fn(now)
		}
	}
}

// Stop ends the loop and waits for an in-flight tick to finish.
// It is safe to call more than once and on a timer that never started.
func (t *RecurringTimer) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	// a timer that was never started has no loop to close done
	t.startOnce.Do(func() {
		close(t.done)
	})
	<-t.done
}
