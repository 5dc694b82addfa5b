package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

const (
	defaultNotifyTopic  = "deathwatch.notifications"
	notifyBatchTimeout  = 10 * time.Second
	notifyWriteAttempts = 3
)

type (
	// NotifierConfig holds Kafka settings for the notification hand-off.
	NotifierConfig struct {
		Brokers []string
		Topic   string
	}

	// unreadNotification is the wire message, one per login with unread
	// pending results.
	unreadNotification struct {
		BatchID     string        `json:"batchId"`
		LoginID     string        `json:"loginId"`
		TotalUnread int           `json:"totalUnread"`
		PerQuery    map[int64]int `json:"perQuery"`
		SentAt      time.Time     `json:"sentAt"`
	}

	// KafkaNotifier publishes unread summaries to a Kafka topic, keyed by
	// login so per-user ordering holds.
	KafkaNotifier struct {
		writer *kafka.Writer
		logger *slog.Logger
	}
)

// LoadNotifierConfig reads Kafka settings from the environment. Empty
// KAFKA_BROKERS means notifications are disabled.
func LoadNotifierConfig() *NotifierConfig {
	return &NotifierConfig{
		Brokers: config.ParseCommaSeparatedList(config.GetEnvStr("KAFKA_BROKERS", "")),
		Topic:   config.GetEnvStr("KAFKA_NOTIFY_TOPIC", defaultNotifyTopic),
	}
}

// Enabled reports whether a broker list was configured.
func (c *NotifierConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewKafkaNotifier creates a notifier publishing to cfg.Topic.
func NewKafkaNotifier(cfg *NotifierConfig, logger *slog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  notifyWriteAttempts,
		WriteTimeout: notifyBatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaNotifier{writer: writer, logger: logger}
}

var _ Notifier = (*KafkaNotifier)(nil)

// NotifyUnread implements Notifier. One message per login; a partial write
// failure returns an error after the remaining summaries were attempted.
func (n *KafkaNotifier) NotifyUnread(ctx context.Context, batchID string, summaries []*storage.UnreadSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	sentAt := time.Now().UTC()
	messages := make([]kafka.Message, 0, len(summaries))

	for _, summary := range summaries {
		payload, err := json.Marshal(unreadNotification{
			BatchID:     batchID,
			LoginID:     summary.LoginID,
			TotalUnread: summary.Total,
			PerQuery:    summary.PerQuery,
			SentAt:      sentAt,
		})
		if err != nil {
			return fmt.Errorf("failed to encode notification: %w", err)
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(summary.LoginID),
			Value: payload,
		})
	}

	if err := n.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to publish notifications: %w", err)
	}

	n.logger.Info("unread notifications published",
		slog.String("batch_id", batchID),
		slog.Int("logins", len(messages)),
		slog.String("topic", n.writer.Topic))

	return nil
}

// Close flushes and releases the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
