package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// MockTarget records the sets pushed to one monitor.
type MockTarget struct {
	mock.Mock
}

func (m *MockTarget) SetMaliciousPrefixes(ctx context.Context, names domain.NameSet) error {
	args := m.Called(ctx, names)
	return args.Error(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func monitors(ds []Delivery) []domain.MonitorID {
	out := make([]domain.MonitorID, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Monitor)
	}
	return out
}

func TestRegistry_FirstBoundTargetWins(t *testing.T) {
	reg := NewMonitorRegistry()
	first := &MockTarget{}
	second := &MockTarget{}

	assert.False(t, reg.Register("A", nil), "unbound registration")
	assert.True(t, reg.Known("A"))
	_, ok := reg.Target("A")
	assert.False(t, ok)

	assert.True(t, reg.Register("A", first))
	assert.False(t, reg.Register("A", second))

	got, ok := reg.Target("A")
	assert.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, reg.Len())
}

func TestDispatch_AnnouncesOnChangeOnly(t *testing.T) {
	reg := NewMonitorRegistry()
	reg.Register("B", &MockTarget{})
	reg.Register("A", &MockTarget{})

	d := NewNotificationDispatcher(reg, quietLogger())

	res := d.Dispatch(domain.NewNameSet("/x"))
	assert.True(t, res.Changed)
	assert.Equal(t, []domain.MonitorID{"A", "B"}, monitors(res.Deliveries))
	assert.Equal(t, float64(domain.NameWireSize+domain.CountWireSize+domain.NameWireSize), res.WireSize)

	res = d.Dispatch(domain.NewNameSet("/x"))
	assert.False(t, res.Changed)
	assert.Empty(t, res.Deliveries)
}

func TestDispatch_SetEqualityIgnoresOrder(t *testing.T) {
	d := NewNotificationDispatcher(NewMonitorRegistry(), quietLogger())

	assert.True(t, d.Dispatch(domain.NewNameSet("/a", "/b", "/c")).Changed)
	assert.False(t, d.Dispatch(domain.NewNameSet("/c", "/a", "/b")).Changed)
	assert.True(t, d.Dispatch(domain.NewNameSet("/a", "/b")).Changed)
}

func TestDispatch_InitialEmptySetIsNotAnnounced(t *testing.T) {
	d := NewNotificationDispatcher(NewMonitorRegistry(), quietLogger())
	assert.False(t, d.Dispatch(domain.NewNameSet()).Changed)
}

func TestDispatch_SkipsUnboundMonitors(t *testing.T) {
	reg := NewMonitorRegistry()
	reg.Register("A", &MockTarget{})
	reg.Register("B", nil)

	d := NewNotificationDispatcher(reg, quietLogger())
	res := d.Dispatch(domain.NewNameSet("/x"))

	assert.Equal(t, 2, res.Monitors)
	assert.Equal(t, []domain.MonitorID{"A"}, monitors(res.Deliveries))
	assert.Equal(t, []domain.MonitorID{"B"}, res.Unbound)
}

func TestDispatch_ResultDoesNotAliasAnnouncement(t *testing.T) {
	d := NewNotificationDispatcher(NewMonitorRegistry(), quietLogger())
	res := d.Dispatch(domain.NewNameSet("/x"))

	res.Set.Add("/tampered")
	assert.False(t, d.Announced().Contains("/tampered"))
}

func TestCourier_DeliversToEveryMonitorDespiteFailures(t *testing.T) {
	broken, healthy := &MockTarget{}, &MockTarget{}
	broken.On("SetMaliciousPrefixes", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	healthy.On("SetMaliciousPrefixes", mock.Anything, domain.NewNameSet("/x")).Return(nil).Once()

	var mu sync.Mutex
	var failed []domain.MonitorID
	c := NewCourier(quietLogger(), WithFailureHook(func(id domain.MonitorID, err error) {
		assert.ErrorIs(t, err, domain.ErrUnknownMonitor)
		mu.Lock()
		failed = append(failed, id)
		mu.Unlock()
	}))
	defer c.Close(time.Second)

	c.Send([]Delivery{{Monitor: "A", Target: broken}, {Monitor: "C", Target: healthy}}, domain.NewNameSet("/x"))
	require.NoError(t, c.Flush(context.Background()))

	mu.Lock()
	assert.Equal(t, []domain.MonitorID{"A"}, failed)
	mu.Unlock()
	healthy.AssertExpectations(t)
}

func TestCourier_SlowMonitorDoesNotDelayOthers(t *testing.T) {
	release := make(chan struct{})
	slow := ports.NotificationTargetFunc(func(ctx context.Context, _ domain.NameSet) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	fast := make(chan domain.NameSet, 1)
	quick := ports.NotificationTargetFunc(func(_ context.Context, names domain.NameSet) error {
		fast <- names
		return nil
	})

	c := NewCourier(quietLogger())
	defer c.Close(time.Second)

	c.Send([]Delivery{{Monitor: "A", Target: slow}, {Monitor: "B", Target: quick}}, domain.NewNameSet("/x"))
	select {
	case got := <-fast:
		assert.True(t, got.Equal(domain.NewNameSet("/x")))
	case <-time.After(time.Second):
		t.Fatal("fast monitor waited for the slow one")
	}
	close(release)
	require.NoError(t, c.Flush(context.Background()))
}

func TestCourier_NewestSetWinsPerMonitor(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var seen []domain.NameSet
	target := ports.NotificationTargetFunc(func(_ context.Context, names domain.NameSet) error {
		<-gate
		mu.Lock()
		seen = append(seen, names)
		mu.Unlock()
		return nil
	})

	c := NewCourier(quietLogger())
	defer c.Close(time.Second)
	to := []Delivery{{Monitor: "A", Target: target}}

	c.Send(to, domain.NewNameSet("/1"))
	c.Send(to, domain.NewNameSet("/2"))
	c.Send(to, domain.NewNameSet("/3"))
	close(gate)
	require.NoError(t, c.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.True(t, seen[len(seen)-1].Equal(domain.NewNameSet("/3")), "the last announcement is the one that sticks")
	for i := 1; i < len(seen); i++ {
		assert.NotEqual(t, seen[i-1].Strings(), seen[i].Strings(), "no set is delivered twice or out of order")
	}
}

func TestCourier_TargetsGetIndependentCopies(t *testing.T) {
	var received domain.NameSet
	target := ports.NotificationTargetFunc(func(_ context.Context, names domain.NameSet) error {
		received = names
		return nil
	})

	c := NewCourier(quietLogger())
	set := domain.NewNameSet("/x")
	c.Send([]Delivery{{Monitor: "A", Target: target}}, set)
	require.NoError(t, c.Flush(context.Background()))
	c.Close(time.Second)

	received.Add("/tampered")
	assert.False(t, set.Contains("/tampered"))
}

func TestCourier_TimeoutBoundsEachPush(t *testing.T) {
	hung := ports.NotificationTargetFunc(func(ctx context.Context, _ domain.NameSet) error {
		<-ctx.Done()
		return ctx.Err()
	})
	errs := make(chan error, 1)
	c := NewCourier(quietLogger(),
		WithDeliveryTimeout(20*time.Millisecond),
		WithFailureHook(func(_ domain.MonitorID, err error) { errs <- err }))
	defer c.Close(time.Second)

	c.Send([]Delivery{{Monitor: "A", Target: hung}}, domain.NewNameSet("/x"))
	select {
	case err := <-errs:
		assert.ErrorContains(t, err, context.DeadlineExceeded.Error())
	case <-time.After(time.Second):
		t.Fatal("push was not bounded")
	}
}

func TestCourier_CloseAbandonsAfterGrace(t *testing.T) {
	hung := ports.NotificationTargetFunc(func(ctx context.Context, _ domain.NameSet) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c := NewCourier(quietLogger(), WithDeliveryTimeout(time.Minute))
	c.Send([]Delivery{{Monitor: "A", Target: hung}}, domain.NewNameSet("/x"))

	start := time.Now()
	c.Close(20 * time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.NoError(t, c.Flush(context.Background()))

	c.Send([]Delivery{{Monitor: "A", Target: hung}}, domain.NewNameSet("/y"))
	require.NoError(t, c.Flush(context.Background()), "closed courier drops new work")
	c.Close(time.Second)
}
