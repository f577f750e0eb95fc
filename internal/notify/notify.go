// Package notify publishes events about newly generated reminders so that
// downstream consumers (email, push, dashboards) can react to them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/models"
)

// EventReminderCreated is the event type of ReminderEvent.
const EventReminderCreated = "reminder.created"

// ReminderEvent is the message published for each created reminder.
type ReminderEvent struct {
	Event      string                `json:"event"`
	RunID      string                `json:"run_id,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
	Reminder   models.ActiveReminder `json:"reminder"`
}

// Publisher delivers reminder events.
type Publisher interface {
	PublishReminderCreated(ctx context.Context, runID string, reminder models.ActiveReminder) error
	Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReminderCreated(context.Context, string, models.ActiveReminder) error {
	return nil
}

func (NopPublisher) Close() {}

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTPublisher publishes events to <prefix>/<company_id>/created at QoS 1.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return &MQTTPublisher{client: client, prefix: cfg.TopicPrefix}, nil
}

// Topic returns the topic events of a company are published on.
func Topic(prefix, companyID string) string {
	return fmt.Sprintf("%s/%s/created", prefix, companyID)
}

// PublishReminderCreated implements Publisher.
func (p *MQTTPublisher) PublishReminderCreated(ctx context.Context, runID string, reminder models.ActiveReminder) error {
	payload, err := json.Marshal(ReminderEvent{
		Event:      EventReminderCreated,
		RunID:      runID,
		OccurredAt: time.Now().UTC(),
		Reminder:   reminder,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reminder event: %w", err)
	}

	token := p.client.Publish(Topic(p.prefix, reminder.CompanyID), 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker, waiting briefly for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Dispatch publishes one event per reminder and returns how many were sent.
// Failures are logged; a reminder that could not be announced is still valid.
func Dispatch(ctx context.Context, pub Publisher, runID string, reminders []models.ActiveReminder, logger log.FieldLogger) int {
	sent := 0
	for _, r := range reminders {
		if err := pub.PublishReminderCreated(ctx, runID, r); err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"reminder_id": r.ID.Hex(),
				"vehicle_id":  r.VehicleID,
			}).Warn("Failed to publish reminder event")
			continue
		}
		sent++
	}
	return sent
}
