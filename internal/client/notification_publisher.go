package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// subjectPrefix is prepended to every event type.
const subjectPrefix = "notifications.erp"

// Publisher is the subset of jetstream.JetStream the publisher needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NotificationPublisher publishes approval status events to NATS JetStream
// for consumption by the notifications service.
//
// Subject convention: notifications.erp.<event_type>
// Event types: purchase_request_<axis>_<status>, withdrawal_<status>
//
// All publish operations are non-fatal. Errors are logged but never propagated
// to the caller, so notification failures never interrupt approval operations.
type NotificationPublisher struct {
	js  Publisher
	log zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string                 `json:"event_type"`
	Department   string                 `json:"department"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Severity     string                 `json:"severity,omitempty"`
	Category     string                 `json:"category,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by js. A nil js gives a
// publisher that drops every event.
func NewNotificationPublisher(js Publisher, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{js: js, log: log}
}

// ConnectJetStream dials url and makes sure stream captures notification
// subjects. The returned connection must be drained by the caller.
func ConnectJetStream(ctx context.Context, url, stream, serviceName string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.Name(serviceName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{subjectPrefix + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("ensure stream %s: %w", stream, err)
	}

	return nc, js, nil
}

// PublishStatusEvent publishes a status transition event.
// Subject: notifications.erp.<eventType>
func (p *NotificationPublisher) PublishStatusEvent(ctx context.Context, eventType, recordID, department string, payload map[string]interface{}) {
	if p.js == nil {
		return
	}

	resourceType := "purchase_request"
	if kind, ok := payload["record_kind"].(string); ok && kind != "" {
		resourceType = kind
	}

	event := &NotificationEvent{
		EventType:    eventType,
		Department:   department,
		ResourceType: resourceType,
		ResourceID:   recordID,
		Severity:     "info",
		Category:     "erp_approval",
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("%s.%s", subjectPrefix, eventType)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("record_id", recordID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("record_id", recordID).
		Msg("notification: event published")
}
