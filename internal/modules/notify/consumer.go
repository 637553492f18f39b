// README: Kafka consumer turning ride status events into push notifications.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carpool/internal/infra"
	"carpool/internal/modules/ride"
)

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Notifier interface {
	NotifyRideStatus(ctx context.Context, e ride.StatusEvent) (int, error)
}

type Consumer struct {
	reader   MessageReader
	notifier Notifier
	tracer   trace.Tracer
	backoff  time.Duration
}

func NewConsumer(reader MessageReader, notifier Notifier) *Consumer {
	return &Consumer{
		reader:   reader,
		notifier: notifier,
		tracer:   otel.Tracer("carpool/notify"),
		backoff:  time.Second,
	}
}

// Run fetches until ctx is cancelled. Malformed messages are logged and
// committed so they do not block the partition.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("kafka fetch failed; retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("kafka commit failed")
		}
	}
}

func (c *Consumer) handle(parent context.Context, msg kafka.Message) {
	ctx := infra.ExtractContext(parent, msg)
	ctx, span := c.tracer.Start(ctx, "notify.RideStatus", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
			attribute.String("messaging.kafka.message.key", string(msg.Key)),
		))
	defer span.End()

	e, err := ride.DecodeStatusEvent(msg.Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping malformed ride status event")
		return
	}
	if _, err := c.notifier.NotifyRideStatus(ctx, e); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("ride_id", e.RideID.String()).Msg("notify ride status failed")
	}
}
