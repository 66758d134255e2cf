// Package simulation owns the appliance collection, the budget and the
// notification list. All writes go through a single serialised reducer
// that publishes a fresh copy of the state, so readers never observe a
// partially applied update.
package simulation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xaenox/watt-guardian/internal/energy"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/random"
	"github.com/xaenox/watt-guardian/internal/telemetry"
	"go.uber.org/zap"
)

const (
	budgetAlertTitle = "Energy Budget Alert"
	minPowerKW       = 0.05
)

var ErrNotFound = errors.New("not found")

// Config holds the tunables of the simulation model.
type Config struct {
	// SampleHours is the energy accounting interval attributed to every
	// tick, independent of the wall-clock tick period.
	SampleHours          float64
	Retention            time.Duration
	HighPowerThresholdKW float64
	HighPowerProbability float64
	BudgetAlertRatio     float64
	EnergyRate           float64
	// DailyBudgetKWh of zero means no budget is configured.
	DailyBudgetKWh float64
}

func DefaultConfig() Config {
	return Config{
		SampleHours:          0.25,
		Retention:            24 * time.Hour,
		HighPowerThresholdKW: 1.5,
		HighPowerProbability: 0.05,
		BudgetAlertRatio:     0.9,
		EnergyRate:           20,
	}
}

// Publisher accepts telemetry events. It must not block.
type Publisher interface {
	Publish(ev telemetry.Event) bool
}

// Metrics receives simulation measurements.
type Metrics interface {
	TickCompleted(totalUsage, currentPower float64, appliancesOn int)
	NotificationCreated(t models.NotificationType)
}

type nopMetrics struct{}

func (nopMetrics) TickCompleted(float64, float64, int)        {}
func (nopMetrics) NotificationCreated(models.NotificationType) {}

type nopPublisher struct{}

func (nopPublisher) Publish(telemetry.Event) bool { return true }

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRandom(src random.Source) Option {
	return func(e *Engine) { e.rnd = src }
}

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.events = p }
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine is the simulation state owner.
type Engine struct {
	cfg     Config
	rnd     random.Source
	now     func() time.Time
	events  Publisher
	metrics Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[state]
}

// New creates an engine in the loading state. The appliance and
// notification slices are copied.
func New(cfg Config, appliances []models.Appliance, notifications []models.Notification, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		rnd:     random.NewTimeSeeded(),
		now:     time.Now,
		events:  nopPublisher{},
		metrics: nopMetrics{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	s := &state{
		status:     models.StatusLoading,
		energyRate: cfg.EnergyRate,
	}
	if cfg.DailyBudgetKWh > 0 {
		b := cfg.DailyBudgetKWh
		s.budget = &b
	}
	for _, a := range appliances {
		if a.History == nil {
			a.History = []models.EnergyEntry{}
		}
		s.appliances = append(s.appliances, a.Clone())
		if a.ID >= s.nextApplianceID {
			s.nextApplianceID = a.ID + 1
		}
	}
	if s.nextApplianceID == 0 {
		s.nextApplianceID = 1
	}

	now := e.now()
	for _, n := range notifications {
		n.Time = energy.RelativeTime(n.Timestamp, now)
		s.notifications = append(s.notifications, n)
		if n.ID > s.lastNotificationID {
			s.lastNotificationID = n.ID
		}
	}
	sort.SliceStable(s.notifications, func(i, j int) bool {
		return s.notifications[i].Timestamp.After(s.notifications[j].Timestamp)
	})

	e.current.Store(s)
	return e
}

// update applies fn to a private copy of the state and publishes it. Events
// returned by fn are forwarded after the new state is visible.
func (e *Engine) update(fn func(s *state, now time.Time) []telemetry.Event) {
	e.mu.Lock()
	next := e.current.Load().clone()
	events := fn(next, e.now())
	e.current.Store(next)
	e.mu.Unlock()

	for _, ev := range events {
		if ev.Kind == telemetry.EventNotification && ev.Notification != nil {
			e.metrics.NotificationCreated(ev.Notification.Type)
		}
		if !e.events.Publish(ev) {
			e.logger.Warn("Telemetry buffer full, event dropped", zap.String("kind", string(ev.Kind)))
		}
	}
}

func notify(s *state, now time.Time, n models.Notification) telemetry.Event {
	created := s.push(n, now)
	return telemetry.Event{Kind: telemetry.EventNotification, At: now, Notification: &created}
}

// MarkReady moves the engine out of the loading state. Ticks before this
// are ignored.
func (e *Engine) MarkReady() {
	e.update(func(s *state, _ time.Time) []telemetry.Event {
		s.status = models.StatusReady
		return nil
	})
	e.logger.Info("Simulation ready")
}

func (e *Engine) Ready() bool {
	return e.current.Load().status == models.StatusReady
}

// Tick advances the telemetry of every switched-on appliance by one
// sample and evaluates the budget and high-power alerts. It reports
// whether the tick ran.
//
// Switched-off appliances keep their power and usage counters, but their
// history is still trimmed to the retention window so that no appliance
// ever holds an entry older than retention. That eviction is the only
// change an off appliance sees.
func (e *Engine) Tick() bool {
	if !e.Ready() {
		return false
	}

	var total, power float64
	var on int
	e.update(func(s *state, now time.Time) []telemetry.Event {
		samples := telemetry.Event{Kind: telemetry.EventSamples, At: now}
		for i := range s.appliances {
			a := &s.appliances[i]
			if a.IsOn {
				a.CurrentPowerKW = math.Max(minPowerKW, a.CurrentPowerKW*(0.5+e.rnd.Float64()))
				entry := energy.NewEntry(a.CurrentPowerKW, e.cfg.SampleHours, now)
				a.History = append(a.History[:len(a.History):len(a.History)], entry)
				a.DailyUsage += a.CurrentPowerKW * e.cfg.SampleHours / 24
				a.MonthlyUsage += a.CurrentPowerKW * e.cfg.SampleHours / 720
				samples.Samples = append(samples.Samples, telemetry.Sample{
					ApplianceID:   a.ID,
					ApplianceName: a.Name,
					Entry:         entry,
				})
			}
			a.History = energy.TrimHistory(a.History, e.cfg.Retention, now)
		}

		events := []telemetry.Event{samples}
		total = energy.TotalUsage(s.appliances)
		power = energy.TotalCurrentPower(s.appliances)
		for _, a := range s.appliances {
			if a.IsOn {
				on++
			}
		}

		if s.budget != nil && e.overBudget(total, *s.budget) &&
			!s.hasUnread(func(n models.Notification) bool { return n.Title == budgetAlertTitle }) {
			budget := *s.budget
			events = append(events, notify(s, now, models.Notification{
				Title:      budgetAlertTitle,
				Message:    fmt.Sprintf("You've used %d%% of your daily energy budget.", int(math.Round(total/budget*100))),
				Type:       models.NotificationWarning,
				ActionURL:  "/budget",
				ActionText: "View Budget",
			}))
		}

		for _, a := range s.appliances {
			if !a.IsOn || a.CurrentPowerKW <= e.cfg.HighPowerThresholdKW {
				continue
			}
			if e.rnd.Float64() < 1-e.cfg.HighPowerProbability {
				continue
			}
			name := a.Name
			if s.hasUnread(func(n models.Notification) bool { return strings.Contains(n.Title, name) }) {
				continue
			}
			events = append(events, notify(s, now, models.Notification{
				Title:      fmt.Sprintf("%s High Power Alert", a.Name),
				Message:    fmt.Sprintf("Your %s is consuming unusually high power (%.2f kW).", a.Name, a.CurrentPowerKW),
				Type:       models.NotificationAlert,
				ActionURL:  fmt.Sprintf("/appliances/%d", a.ID),
				ActionText: "Check Device",
			}))
		}
		return events
	})

	e.metrics.TickCompleted(total, power, on)
	e.logger.Debug("Simulation tick",
		zap.Float64("total_usage_kwh", total),
		zap.Float64("current_power_kw", power),
		zap.Int("appliances_on", on))
	return true
}

func (e *Engine) overBudget(total, budget float64) bool {
	return total >= e.cfg.BudgetAlertRatio*budget
}

// ToggleApplianceState switches an appliance on or off. Unknown ids are
// ignored. Switching a running appliance off records a success
// notification with the estimated daily saving.
func (e *Engine) ToggleApplianceState(id int, isOn bool) {
	found := false
	e.update(func(s *state, now time.Time) []telemetry.Event {
		a := s.appliance(id)
		if a == nil {
			return nil
		}
		found = true
		wasOn := a.IsOn
		a.IsOn = isOn
		if !wasOn || isOn {
			return nil
		}
		return []telemetry.Event{notify(s, now, models.Notification{
			Title:   fmt.Sprintf("%s Turned Off", a.Name),
			Message: fmt.Sprintf("You've turned off your %s, saving approximately %.2f kWh per day.", a.Name, a.CurrentPowerKW*24),
			Type:    models.NotificationSuccess,
		})}
	})
	if !found {
		e.logger.Debug("Toggle ignored for unknown appliance", zap.Int("appliance_id", id))
		return
	}
	e.logger.Info("Appliance toggled", zap.Int("appliance_id", id), zap.Bool("is_on", isOn))
}

// AddDevice registers a new switched-on appliance with a small random
// initial draw and zeroed usage counters.
func (e *Engine) AddDevice(spec models.DeviceSpec) models.Appliance {
	spec = spec.Normalize()
	var added models.Appliance
	e.update(func(s *state, now time.Time) []telemetry.Event {
		added = models.Appliance{
			ID:             s.nextApplianceID,
			Name:           spec.Name,
			Icon:           spec.Icon,
			Category:       spec.Category,
			Location:       spec.Location,
			CurrentPowerKW: e.rnd.Float64() * 0.5,
			IsOn:           true,
			IsSmartDevice:  spec.IsSmartDevice,
			History:        []models.EnergyEntry{},
		}
		s.nextApplianceID++
		s.appliances = append(s.appliances, added)
		return []telemetry.Event{notify(s, now, models.Notification{
			Title:      "New Device Added",
			Message:    fmt.Sprintf("%s has been added to your dashboard.", added.Name),
			Type:       models.NotificationInfo,
			ActionURL:  fmt.Sprintf("/appliances/%d", added.ID),
			ActionText: "View Device",
		})}
	})
	e.logger.Info("Device added", zap.Int("appliance_id", added.ID), zap.String("name", added.Name))
	return added.Clone()
}

// SetBudget replaces the daily budget.
func (e *Engine) SetBudget(kwh float64) error {
	if err := models.ValidateBudget(kwh); err != nil {
		return err
	}
	e.update(func(s *state, _ time.Time) []telemetry.Event {
		s.budget = &kwh
		return nil
	})
	return nil
}

// ClearBudget removes the daily budget; budget-relative checks stop.
func (e *Engine) ClearBudget() {
	e.update(func(s *state, _ time.Time) []telemetry.Event {
		s.budget = nil
		return nil
	})
}

func (e *Engine) SetEnergyRate(rate float64) error {
	if err := models.ValidateRate(rate); err != nil {
		return err
	}
	e.update(func(s *state, _ time.Time) []telemetry.Event {
		s.energyRate = rate
		return nil
	})
	return nil
}

// Snapshot returns a copy of the current state with derived totals.
func (e *Engine) Snapshot() models.Snapshot {
	s := e.current.Load().clone()
	for i := range s.appliances {
		s.appliances[i] = s.appliances[i].Clone()
	}
	snap := models.Snapshot{
		Status:            s.status,
		Appliances:        s.appliances,
		TotalUsage:        energy.TotalUsage(s.appliances),
		Budget:            s.budget,
		EnergyRate:        s.energyRate,
		Notifications:     s.notifications,
		TotalCurrentPower: energy.TotalCurrentPower(s.appliances),
		TakenAt:           e.now(),
	}
	for _, n := range s.notifications {
		if !n.IsRead {
			snap.UnreadCount++
		}
	}
	if s.budget != nil {
		snap.BudgetAlert = e.overBudget(snap.TotalUsage, *s.budget)
		snap.CostBudget = energy.Cost(*s.budget, s.energyRate)
	}
	return snap
}

// Appliance returns a copy of one appliance.
func (e *Engine) Appliance(id int) (models.Appliance, error) {
	a := e.current.Load().appliance(id)
	if a == nil {
		return models.Appliance{}, fmt.Errorf("appliance %d: %w", id, ErrNotFound)
	}
	return a.Clone(), nil
}
