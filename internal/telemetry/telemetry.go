// Package telemetry fans simulation events out to external sinks
// (the PostgreSQL archive, the MQTT publisher) without ever blocking the
// simulation.
package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/xaenox/watt-guardian/internal/models"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventSamples      EventKind = "samples"
	EventNotification EventKind = "notification"
)

// Sample is one tick entry tagged with the appliance it belongs to.
type Sample struct {
	ApplianceID   int                `json:"appliance_id"`
	ApplianceName string             `json:"appliance_name"`
	Entry         models.EnergyEntry `json:"entry"`
}

// Event is either a batch of tick samples or a newly created notification.
type Event struct {
	Kind         EventKind            `json:"kind"`
	At           time.Time            `json:"at"`
	Samples      []Sample             `json:"samples,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// Sink receives events from the dispatcher goroutine.
type Sink interface {
	Name() string
	Write(ctx context.Context, ev Event) error
}

type DispatcherConfig struct {
	Buffer int
	// OnDrop is called for every event discarded because the buffer was full.
	OnDrop func()
}

// Dispatcher buffers events and delivers them to every sink in order.
type Dispatcher struct {
	events  chan Event
	sinks   []Sink
	onDrop  func()
	dropped atomic.Uint64
	logger  *zap.Logger
}

func NewDispatcher(cfg DispatcherConfig, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	return &Dispatcher{
		events: make(chan Event, cfg.Buffer),
		sinks:  sinks,
		onDrop: cfg.OnDrop,
		logger: logger,
	}
}

// Publish enqueues ev and reports whether it was accepted.
func (d *Dispatcher) Publish(ev Event) bool {
	select {
	case d.events <- ev:
		return true
	default:
		d.dropped.Add(1)
		if d.onDrop != nil {
			d.onDrop()
		}
		return false
	}
}

// Dropped is the number of events discarded so far.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Run delivers events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Telemetry dispatcher started", zap.Int("sinks", len(d.sinks)))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Telemetry dispatcher stopped", zap.Uint64("dropped", d.Dropped()))
			return
		case ev := <-d.events:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		if err := sink.Write(ctx, ev); err != nil {
			d.logger.Error("Failed to write telemetry event",
				zap.Error(err),
				zap.String("sink", sink.Name()),
				zap.String("kind", string(ev.Kind)))
		}
	}
}
