package pubsub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

type lastSet struct {
	mu  sync.Mutex
	set domain.NameSet
	n   int
}

func (l *lastSet) SetMaliciousPrefixes(_ context.Context, names domain.NameSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set = names
	l.n++
	return nil
}

func (l *lastSet) get() (domain.NameSet, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set, l.n
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTopic_NoPrefixCollision(t *testing.T) {
	assert.False(t, bytes.HasPrefix(Topic("AB"), Topic("A")))
	assert.Equal(t, "VERDICT:A\n", string(Topic("A")))
}

func TestPublisher_DeliversToMatchingMonitorOnly(t *testing.T) {
	url := fmt.Sprintf("inproc://floodctl-%s", t.Name())
	p, err := NewPublisher(url, quiet())
	require.NoError(t, err)
	defer p.Close()

	subA, err := NewSubscriber(url, "A", quiet())
	require.NoError(t, err)
	subAB, err := NewSubscriber(url, "AB", quiet())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	gotA, gotAB := &lastSet{}, &lastSet{}
	for _, pair := range []struct {
		s *Subscriber
		t ports.NotificationTarget
	}{{subA, gotA}, {subAB, gotAB}} {
		wg.Add(1)
		go func(s *Subscriber, target ports.NotificationTarget) {
			defer wg.Done()
			s.Run(ctx, target)
		}(pair.s, pair.t)
	}

	target, ok := p.Resolve("A")
	require.True(t, ok)

	// subscribers connect asynchronously, so keep publishing until one lands
	assert.Eventually(t, func() bool {
		_ = target.SetMaliciousPrefixes(ctx, domain.NewNameSet("/x", "/y"))
		_, n := gotA.get()
		return n > 0
	}, 2*time.Second, 20*time.Millisecond)

	set, _ := gotA.get()
	assert.True(t, set.Equal(domain.NewNameSet("/x", "/y")))
	_, nAB := gotAB.get()
	assert.Zero(t, nAB)

	cancel()
	subA.Close()
	subAB.Close()
	wg.Wait()
}

func TestPublisher_ClosedRejectsPublish(t *testing.T) {
	p, err := NewPublisher(fmt.Sprintf("inproc://floodctl-%s", t.Name()), quiet())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Error(t, p.Publish("A", domain.NewNameSet()))
}
