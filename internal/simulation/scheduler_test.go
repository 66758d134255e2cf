package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/random"
)

func historyLen(e *Engine) int {
	a, _ := e.Appliance(1)
	return len(a.History)
}

func TestSchedulerGatesTicksOnStartupDelay(t *testing.T) {
	apps := []models.Appliance{{ID: 1, Name: "Pump", CurrentPowerKW: 0.5, IsOn: true}}
	e := New(DefaultConfig(), apps, nil, WithRandom(random.NewSequence(0.5)))
	s := NewScheduler(e, SchedulerConfig{
		StartupDelay:    100 * time.Millisecond,
		TickInterval:    10 * time.Millisecond,
		RefreshInterval: 10 * time.Millisecond,
	}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	require.ErrorIs(t, s.Start(context.Background()), ErrSchedulerRunning)

	require.False(t, e.Ready())
	require.Zero(t, historyLen(e))

	require.Eventually(t, func() bool { return historyLen(e) >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, e.Ready())
}

func TestSchedulerStopsTicking(t *testing.T) {
	apps := []models.Appliance{{ID: 1, Name: "Pump", CurrentPowerKW: 0.5, IsOn: true}}
	e := New(DefaultConfig(), apps, nil, WithRandom(random.NewSequence(0.5)))
	s := NewScheduler(e, SchedulerConfig{
		StartupDelay:    time.Millisecond,
		TickInterval:    5 * time.Millisecond,
		RefreshInterval: time.Hour,
	}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return historyLen(e) >= 2 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	stopped := historyLen(e)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, stopped, historyLen(e))
}

func TestSchedulerStopBeforeReady(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	s := NewScheduler(e, SchedulerConfig{StartupDelay: time.Hour, TickInterval: time.Second, RefreshInterval: time.Second}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	require.False(t, e.Ready())
}
