// Package notify delivers donor notifications. KafkaDispatcher publishes
// each notification to a Kafka topic under a shared rate limit and retries
// transient broker errors with exponential backoff; Deduplicator guards any
// dispatcher with per-request notification receipts so a donor is sent at
// most one message per request even when rounds race or are redelivered.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/observability"
)

// Writer is the subset of *kafka.Writer used by KafkaDispatcher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer for topic. Messages are partitioned by key
// so all notifications of one donor keep their order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// KafkaDispatcher publishes notifications as JSON.
type KafkaDispatcher struct {
	w          Writer
	topic      string
	limiter    *rate.Limiter
	maxRetries uint64

	// newBackOff builds the retry schedule of one Send.
	newBackOff func() backoff.BackOff
}

// NewKafkaDispatcher wraps w. A zero RateRPS disables throttling.
func NewKafkaDispatcher(w Writer, topic string, cfg config.NotifyConfig) *KafkaDispatcher {
	limit := rate.Limit(cfg.RateRPS)
	if cfg.RateRPS == 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &KafkaDispatcher{
		w:          w,
		topic:      topic,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// Send publishes n keyed by the donor id.
func (d *KafkaDispatcher) Send(ctx context.Context, n domain.DonorNotification) error {
	value, err := json.Marshal(n)
	if err != nil {
		published.WithLabelValues(resultError).Inc()
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := d.limiter.Wait(ctx); err != nil {
		published.WithLabelValues(resultError).Inc()
		return fmt.Errorf("rate limit: %w", err)
	}

	msg := kafka.Message{Key: []byte(n.DonorID), Value: value}
	observability.InjectKafka(ctx, &msg)
	attempt := 0
	op := func() error {
		attempt++
		err := d.w.WriteMessages(ctx, msg)
		if err != nil {
			log.Warn().Err(err).Str("topic", d.topic).Str("donor_id", n.DonorID).Int("attempt", attempt).Msg("notification publish failed")
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(d.newBackOff(), d.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		published.WithLabelValues(resultError).Inc()
		return fmt.Errorf("publish notification to %s: %w", d.topic, err)
	}

	published.WithLabelValues(resultOK).Inc()
	log.Debug().Str("donor_id", n.DonorID).Str("notification_id", n.ID).Msg("notification published")
	return nil
}

// Close flushes and closes the underlying writer.
func (d *KafkaDispatcher) Close() error { return d.w.Close() }

// LogDispatcher only logs notifications. It is used when Kafka is disabled.
type LogDispatcher struct{}

// Send logs n.
func (LogDispatcher) Send(_ context.Context, n domain.DonorNotification) error {
	log.Info().
		Str("donor_id", n.DonorID).
		Str("seeker_id", n.Payload.SeekerID).
		Str("request_id", n.Payload.RequestID).
		Float64("distance_km", n.Payload.Distance).
		Str("title", n.Title).
		Msg("notification (log only)")
	published.WithLabelValues(resultOK).Inc()
	return nil
}
