package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Lifecycle event subjects
const (
	SubjectBusinessStatusChanged      = "registry.business.status_changed"
	SubjectAccreditationStatusChanged = "registry.accreditation.status_changed"
	SubjectComplaintCreated           = "registry.complaint.created"
	SubjectComplaintEscalated         = "registry.complaint.escalated"
)

// LifecycleEvent is the envelope of every published event
type LifecycleEvent struct {
	ID         string         `json:"id"`
	Subject    string         `json:"subject"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// EventPublisher announces status changes to downstream consumers.
// Publishing is best effort: flows log failures and never roll back on them.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data map[string]any) error
}

// NATSEventPublisher publishes JSON envelopes over a core NATS connection
type NATSEventPublisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewNATSEventPublisher connects to url. An empty url yields a publisher that only logs.
func NewNATSEventPublisher(url, clientName string, logger *logrus.Logger) (*NATSEventPublisher, error) {
	p := &NATSEventPublisher{logger: logger.WithField("component", "events.publisher")}
	if url == "" {
		p.logger.Warn("NATS_URL not set, event publishing disabled")
		return p, nil
	}

	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.WithField("url", c.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	p.conn = conn

	return p, nil
}

// IsConnected returns true if connected to NATS
func (p *NATSEventPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

func (p *NATSEventPublisher) Publish(ctx context.Context, subject string, data map[string]any) error {
	if !p.IsConnected() {
		p.logger.WithField("subject", subject).Debug("NATS not connected, skipping event publish")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	event := LifecycleEvent{
		ID:         uuid.New().String(),
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject":  subject,
			"event_id": event.ID,
		}).WithError(err).Error("Failed to publish event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"subject":  subject,
		"event_id": event.ID,
	}).Debug("Published event")

	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSEventPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.WithError(err).Warn("NATS drain failed")
		p.conn.Close()
	}
}
