package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	name   string
	events []Event
	err    error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversToAllSinks(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "failing", err: errors.New("boom")}
	d := NewDispatcher(DispatcherConfig{Buffer: 4}, zap.NewNop(), failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.True(t, d.Publish(Event{Kind: EventSamples}))
	require.True(t, d.Publish(Event{Kind: EventNotification}))

	require.Eventually(t, func() bool { return ok.count() == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, failing.count(), "a failing sink must not stop delivery")
	require.Equal(t, EventSamples, ok.events[0].Kind)

	cancel()
	<-done
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	drops := 0
	d := NewDispatcher(DispatcherConfig{Buffer: 1, OnDrop: func() { drops++ }}, zap.NewNop())

	require.True(t, d.Publish(Event{}))
	require.False(t, d.Publish(Event{}))
	require.Equal(t, uint64(1), d.Dropped())
	require.Equal(t, 1, drops)
}
