// Package events consumes donation-request change events from Kafka and
// hands them to the search initiator.
//
// Delivery is at-least-once: an offset is committed only after the event was
// handled or classified as poison (undecodable, or rejected by the initiator
// as malformed). Transient failures are retried in place with exponential
// backoff, which blocks the partition until the dependency recovers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/observability"
	"github.com/tbourn/donor-search/internal/search"
)

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one request event.
type Handler interface {
	HandleEvent(ctx context.Context, ev domain.RequestEvent) error
}

var consumed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "donor_search_request_events_total",
		Help: "Request events consumed, by result (ok|poison|retry).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(consumed)
}

// NewKafkaReader returns a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6,
	})
}

// Consumer drives a Reader into a Handler.
type Consumer struct {
	r Reader
	h Handler

	newBackOff func() backoff.BackOff
}

// NewConsumer returns a Consumer of r.
func NewConsumer(r Reader, h Handler) *Consumer {
	return &Consumer{
		r: r,
		h: h,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info().Msg("request event consumer started")
	defer log.Info().Msg("request event consumer stopped")

	fetchBackOff := c.newBackOff()
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := fetchBackOff.NextBackOff()
			log.Error().Err(err).Dur("retry_in", wait).Msg("fetch request event")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		fetchBackOff.Reset()

		if err := c.process(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Int64("offset", m.Offset).Msg("commit request event")
		}
	}
}

// process handles one message. A nil return means the offset may be
// committed.
func (c *Consumer) process(ctx context.Context, m kafka.Message) error {
	ctx = observability.ExtractKafka(ctx, &m)
	ctx, span := otel.Tracer("events/Consumer").Start(ctx, "process")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.kafka.topic", m.Topic),
		attribute.Int("messaging.kafka.partition", m.Partition),
		attribute.Int64("messaging.kafka.offset", m.Offset),
	)

	lg := log.With().Str("topic", m.Topic).Int("partition", m.Partition).Int64("offset", m.Offset).Logger()

	var ev domain.RequestEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		consumed.WithLabelValues("poison").Inc()
		lg.Error().Err(err).Msg("request event dropped: undecodable")
		return nil
	}

	op := func() error {
		err := c.h.HandleEvent(ctx, ev)
		if search.IsOperational(err) {
			return backoff.Permanent(err)
		}
		if err != nil {
			consumed.WithLabelValues("retry").Inc()
			lg.Warn().Err(err).Str("request_id", ev.RequestID).Msg("request event failed, retrying")
		}
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
	switch {
	case err == nil:
		consumed.WithLabelValues("ok").Inc()
		return nil
	case search.IsOperational(err):
		consumed.WithLabelValues("poison").Inc()
		lg.Error().Err(err).Str("seeker_id", ev.SeekerID).Str("request_id", ev.RequestID).Msg("request event dropped")
		return nil
	default:
		return err
	}
}
