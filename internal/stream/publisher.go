// Package stream publishes persisted emergency events and notifications to
// Kafka for the offline push pipeline. Publishing is best-effort; the
// realtime path never fails because a topic is unreachable.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/kylerivers/motorev-sub004/internal/models"
)

type Publisher struct {
	emergencies   *kafka.Writer
	notifications *kafka.Writer
}

func NewPublisher(brokers []string, emergencyTopic, notificationTopic string) *Publisher {
	return &Publisher{
		emergencies:   newWriter(brokers, emergencyTopic),
		notifications: newWriter(brokers, notificationTopic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // key by user so per-rider order holds
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

// PublishEmergency keys the message by the reporting rider.
func (p *Publisher) PublishEmergency(ctx context.Context, event *models.EmergencyEvent) error {
	return publish(ctx, p.emergencies, event.UserID, event)
}

// PublishNotification keys the message by the target rider.
func (p *Publisher) PublishNotification(ctx context.Context, notification *models.Notification) error {
	return publish(ctx, p.notifications, notification.UserID, notification)
}

func publish(ctx context.Context, w *kafka.Writer, userID uint, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(userID), 10)),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	if err := p.emergencies.Close(); err != nil {
		return err
	}
	return p.notifications.Close()
}
