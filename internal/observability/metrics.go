package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xaenox/watt-guardian/internal/models"
)

// Metrics implements the simulation, assistant and telemetry hooks on top of
// Prometheus collectors.
type Metrics struct {
	ticks         prometheus.Counter
	notifications *prometheus.CounterVec
	chatMessages  *prometheus.CounterVec
	dropped       prometheus.Counter
	totalUsage    prometheus.Gauge
	appliancesOn  prometheus.Gauge
	currentPower  prometheus.Gauge
	replyLatency  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wattguardian_ticks_total",
			Help: "Simulation ticks applied.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattguardian_notifications_created_total",
			Help: "Notifications created, by type.",
		}, []string{"type"}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattguardian_chat_messages_total",
			Help: "Chat messages answered, by matched intent.",
		}, []string{"intent"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wattguardian_telemetry_dropped_total",
			Help: "Telemetry events lost because the dispatcher buffer was full.",
		}),
		totalUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wattguardian_total_usage_kwh",
			Help: "Energy recorded in the retained history of all appliances.",
		}),
		appliancesOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wattguardian_appliances_on",
			Help: "Appliances currently switched on.",
		}),
		currentPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wattguardian_current_power_kw",
			Help: "Combined draw of switched-on appliances.",
		}),
		replyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wattguardian_reply_latency_seconds",
			Help:    "Time to build and store a chat reply.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	reg.MustRegister(m.ticks, m.notifications, m.chatMessages, m.dropped,
		m.totalUsage, m.appliancesOn, m.currentPower, m.replyLatency)
	return m
}

func (m *Metrics) TickCompleted(totalUsage, currentPower float64, appliancesOn int) {
	m.ticks.Inc()
	m.totalUsage.Set(totalUsage)
	m.currentPower.Set(currentPower)
	m.appliancesOn.Set(float64(appliancesOn))
}

func (m *Metrics) NotificationCreated(t models.NotificationType) {
	m.notifications.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) ChatReplied(intent string, latency time.Duration) {
	m.chatMessages.WithLabelValues(intent).Inc()
	m.replyLatency.Observe(latency.Seconds())
}

// TelemetryDropped is the dispatcher's drop hook.
func (m *Metrics) TelemetryDropped() {
	m.dropped.Inc()
}
