package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xaenox/watt-guardian/internal/telemetry"
)

const qosAtLeastOnce byte = 1

// Broker is the publishing side of an MQTT connection.
type Broker interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

type PublisherConfig struct {
	TopicPrefix string // e.g. "wattguardian"
}

// Publisher is a telemetry sink that mirrors tick samples and notifications
// to MQTT topics.
type Publisher struct {
	broker Broker
	prefix string
}

func NewPublisher(broker Broker, config PublisherConfig) *Publisher {
	prefix := config.TopicPrefix
	if prefix == "" {
		prefix = "wattguardian"
	}
	return &Publisher{broker: broker, prefix: prefix}
}

type samplePayload struct {
	ApplianceID   int       `json:"appliance_id"`
	ApplianceName string    `json:"appliance_name"`
	Timestamp     time.Time `json:"timestamp"`
	EnergyKWh     float64   `json:"energy_kwh"`
	PowerKW       float64   `json:"power_kw"`
}

func (p *Publisher) Name() string { return "mqtt" }

func (p *Publisher) Write(ctx context.Context, ev telemetry.Event) error {
	switch ev.Kind {
	case telemetry.EventSamples:
		for _, s := range ev.Samples {
			err := p.publish(ctx, p.EnergyTopic(s.ApplianceID), samplePayload{
				ApplianceID:   s.ApplianceID,
				ApplianceName: s.ApplianceName,
				Timestamp:     s.Entry.Timestamp,
				EnergyKWh:     s.Entry.EnergyKWh,
				PowerKW:       s.Entry.PowerKW,
			})
			if err != nil {
				return err
			}
		}
	case telemetry.EventNotification:
		if ev.Notification != nil {
			return p.publish(ctx, p.NotificationTopic(), ev.Notification)
		}
	}
	return nil
}

func (p *Publisher) EnergyTopic(applianceID int) string {
	return fmt.Sprintf("%s/appliances/%d/energy", p.prefix, applianceID)
}

func (p *Publisher) NotificationTopic() string {
	return p.prefix + "/notifications"
}

func (p *Publisher) publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}
	if err := p.broker.Publish(ctx, topic, qosAtLeastOnce, false, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}
