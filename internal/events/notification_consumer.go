package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/kafka"
	"github.com/mindsettler/service-booking/internal/notification"
)

// NotificationConsumer listens to the notifications topic and sends the
// matching email for each event. Malformed messages are dropped; send
// failures are returned so the message is redelivered.
type NotificationConsumer struct {
	consumer  *kafka.Consumer
	mailer    notification.Mailer
	templates *notification.Templates
	logger    *zap.Logger
}

// NewNotificationConsumer creates a new NotificationConsumer.
func NewNotificationConsumer(
	brokers []string,
	groupID string,
	mailer notification.Mailer,
	templates *notification.Templates,
	logger *zap.Logger,
) *NotificationConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicBookingNotifications, logger)
	return &NotificationConsumer{
		consumer:  consumer,
		mailer:    mailer,
		templates: templates,
		logger:    logger,
	}
}

// Start begins consuming notification events. This blocks until the context
// is cancelled.
func (c *NotificationConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *NotificationConsumer) Close() error {
	return c.consumer.Close()
}

func (c *NotificationConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from notifications topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case VerificationRequested:
		return c.handleVerificationRequested(cloudEvent)
	case CancellationRequested:
		return c.handleCancellationRequested(cloudEvent)
	case StatusChanged:
		return c.handleStatusChanged(cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled notification event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *NotificationConsumer) handleVerificationRequested(cloudEvent kafka.CloudEvent) error {
	var evt VerificationRequestedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse VerificationRequestedEvent data", zap.Error(err))
		return nil
	}

	email := c.templates.VerificationEmail(evt.Email, evt.FullName, evt.Token)
	return c.send(email, evt.AcknowledgementID)
}

func (c *NotificationConsumer) handleCancellationRequested(cloudEvent kafka.CloudEvent) error {
	var evt CancellationRequestedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse CancellationRequestedEvent data", zap.Error(err))
		return nil
	}

	email := c.templates.CancellationEmail(evt.Email, evt.FullName, evt.Token, evt.SlotStart)
	return c.send(email, evt.AcknowledgementID)
}

func (c *NotificationConsumer) handleStatusChanged(cloudEvent kafka.CloudEvent) error {
	var evt StatusChangedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse StatusChangedEvent data", zap.Error(err))
		return nil
	}

	email := c.templates.StatusEmail(evt.Email, evt.FullName, evt.AcknowledgementID, evt.Status, evt.Reason, evt.SlotStart, evt.SlotEnd)
	return c.send(email, evt.AcknowledgementID)
}

func (c *NotificationConsumer) send(email notification.Email, ackID string) error {
	if err := c.mailer.Send(email); err != nil {
		c.logger.Error("failed to send notification email",
			zap.String("acknowledgement_id", ackID),
			zap.String("subject", email.Subject),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("notification email sent",
		zap.String("acknowledgement_id", ackID),
		zap.String("subject", email.Subject),
	)
	return nil
}
