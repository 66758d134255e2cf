package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/watt-guardian/internal/models"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TickCompleted(12.5, 3.2, 4)
	m.TickCompleted(13, 3.1, 5)
	require.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	require.Equal(t, 13.0, testutil.ToFloat64(m.totalUsage))
	require.Equal(t, 3.1, testutil.ToFloat64(m.currentPower))
	require.Equal(t, 5.0, testutil.ToFloat64(m.appliancesOn))

	m.NotificationCreated(models.NotificationAlert)
	m.NotificationCreated(models.NotificationAlert)
	m.NotificationCreated(models.NotificationSuccess)
	require.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues("alert")))

	m.ChatReplied("usage", 3*time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(m.chatMessages.WithLabelValues("usage")))
	require.Equal(t, 1, testutil.CollectAndCount(m.replyLatency))

	m.TelemetryDropped()
	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP wattguardian_telemetry_dropped_total Telemetry events lost because the dispatcher buffer was full.
# TYPE wattguardian_telemetry_dropped_total counter
wattguardian_telemetry_dropped_total 1
`), "wattguardian_telemetry_dropped_total")
	require.NoError(t, err)
}

func TestMetricsRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	require.Panics(t, func() { NewMetrics(reg) })
}
