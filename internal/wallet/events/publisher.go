// Package events publishes withdrawal notifications to kafka, redis streams
// and webhooks.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/internal/withdrawal"
)

// TopicWithdrawalSubmitted is the topic of accepted withdrawals.
const TopicWithdrawalSubmitted = "withdrawal.submitted"

// EventPublisher handles publishing withdrawal events to multiple destinations
type EventPublisher struct {
	publishers []Publisher
	log        *zap.Logger
}

// Publisher defines the interface for event publishers
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(publishers []Publisher, log *zap.Logger) *EventPublisher {
	return &EventPublisher{
		publishers: publishers,
		log:        log,
	}
}

// PublishWithdrawalSubmitted publishes event to all configured publishers.
// It fails only when every publisher fails.
func (p *EventPublisher) PublishWithdrawalSubmitted(ctx context.Context, event *withdrawal.SubmittedEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ID == uuid.Nil {
		return fmt.Errorf("event ID is required")
	}

	var lastErr error
	successCount := 0
	for i, publisher := range p.publishers {
		if err := publisher.PublishEvent(ctx, TopicWithdrawalSubmitted, event.WalletID, event); err != nil {
			p.log.Error("failed to publish event",
				zap.Int("publisher_index", i),
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
			lastErr = err
		} else {
			successCount++
		}
	}

	p.log.Info("published withdrawal event",
		zap.String("event_id", event.ID.String()),
		zap.String("wallet_id", event.WalletID),
		zap.String("transaction_id", event.TransactionID),
		zap.String("currency", event.CurrencyCode),
		zap.Int("publishers_success", successCount),
		zap.Int("publishers_total", len(p.publishers)),
	)

	if successCount == 0 && lastErr != nil {
		return fmt.Errorf("all publishers failed, last error: %w", lastErr)
	}
	return nil
}

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements Publisher for Apache Kafka
type KafkaPublisher struct {
	writer MessageWriter
	log    *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to brokers. The topic is
// set per message.
func NewKafkaPublisher(brokers []string, log *zap.Logger) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
	}, log)
}

// NewKafkaPublisherWithWriter creates a publisher on an existing writer.
func NewKafkaPublisherWithWriter(writer MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

// PublishEvent publishes an event to Kafka, partitioned by key.
func (k *KafkaPublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	k.log.Debug("publishing event to kafka",
		zap.String("topic", topic),
		zap.Int("event_size", len(eventData)),
	)

	now := time.Now()
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: eventData,
		Time:  now,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(topic)},
			{Key: "timestamp", Value: []byte(now.Format(time.RFC3339))},
		},
	}
	return k.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// StreamClient is the subset of redis.Cmdable used by RedisPublisher.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher implements Publisher for Redis Streams
type RedisPublisher struct {
	client StreamClient
	prefix string
	log    *zap.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(client StreamClient, prefix string, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

// PublishEvent publishes an event to Redis Streams
func (r *RedisPublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	streamKey := r.prefix + ":" + topic
	result := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"event_type": topic,
			"key":        key,
			"data":       string(eventData),
			"timestamp":  time.Now().Format(time.RFC3339),
			"source":     "console",
		},
	})
	if err := result.Err(); err != nil {
		r.log.Error("failed to publish event to redis stream",
			zap.String("stream", streamKey),
			zap.Error(err))
		return fmt.Errorf("failed to publish to redis stream: %w", err)
	}

	r.log.Debug("successfully published event to redis stream",
		zap.String("stream", streamKey),
		zap.String("message_id", result.Val()))
	return nil
}

// WebhookPublisher implements Publisher for HTTP webhooks
type WebhookPublisher struct {
	webhookURL string
	client     *http.Client
	log        *zap.Logger
}

// NewWebhookPublisher creates a new webhook publisher
func NewWebhookPublisher(webhookURL string, log *zap.Logger) *WebhookPublisher {
	return &WebhookPublisher{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// PublishEvent publishes an event via HTTP webhook
func (w *WebhookPublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	payload := map[string]interface{}{
		"topic":     topic,
		"key":       key,
		"event":     event,
		"timestamp": time.Now().Format(time.RFC3339),
		"source":    "console",
	}
	payloadData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewBuffer(payloadData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", topic)
	req.Header.Set("X-Source", "console")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Error("failed to send webhook",
			zap.String("url", w.webhookURL),
			zap.Error(err))
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.log.Error("webhook returned error status",
			zap.String("url", w.webhookURL),
			zap.Int("status_code", resp.StatusCode))
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}
	return nil
}
