package persistence

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// MockStorage implements ports.VerdictRepository for testing
type MockStorage struct {
	SavedVerdicts []domain.Verdict
	Batches       int
	mu            sync.Mutex
}

func (m *MockStorage) SaveVerdictsBatch(ctx context.Context, verdicts []domain.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SavedVerdicts = append(m.SavedVerdicts, verdicts...)
	m.Batches++
	return nil
}

func (m *MockStorage) ListVerdicts(ctx context.Context, limit int) ([]domain.Verdict, error) {
	return nil, nil
}
func (m *MockStorage) GetVerdict(ctx context.Context, id string) (*domain.Verdict, error) {
	return nil, nil
}
func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) saved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SavedVerdicts)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPersistenceManager_FlushOnInterval(t *testing.T) {
	store := &MockStorage{}
	pm := NewPersistenceManager(store, 10, discard())
	pm.SetFlushInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pm.Start(ctx)

	pm.OnVerdict(domain.Verdict{ID: "v1"})
	pm.OnVerdict(domain.Verdict{ID: "v2"})

	assert.Eventually(t, func() bool { return store.saved() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPersistenceManager_FlushOnCancel(t *testing.T) {
	store := &MockStorage{}
	pm := NewPersistenceManager(store, 10, discard())
	pm.SetFlushInterval(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	pm.Start(ctx)
	pm.OnVerdict(domain.Verdict{ID: "v1"})
	cancel()

	select {
	case <-pm.Done():
	case <-time.After(time.Second):
		t.Fatal("persistence loop did not stop")
	}
	assert.Equal(t, 1, store.saved())
}

func TestPersistenceManager_Disabled(t *testing.T) {
	store := &MockStorage{}
	pm := NewPersistenceManager(store, 10, discard())
	pm.SetEnabled(false)
	assert.False(t, pm.IsEnabled())

	ctx, cancel := context.WithCancel(context.Background())
	pm.Start(ctx)
	pm.OnVerdict(domain.Verdict{ID: "v1"})
	cancel()
	<-pm.Done()

	assert.Equal(t, 0, store.saved())
}

func TestPersistenceManager_DropsWhenFull(t *testing.T) {
	store := &MockStorage{}
	pm := NewPersistenceManager(store, 1, discard())

	pm.OnVerdict(domain.Verdict{ID: "v1"})
	pm.OnVerdict(domain.Verdict{ID: "v2"})

	ctx, cancel := context.WithCancel(context.Background())
	pm.Start(ctx)
	cancel()
	<-pm.Done()

	assert.Equal(t, 1, store.saved())
}
