// README: Kafka publisher for ride status events.
package ride

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"carpool/internal/infra"
)

type EventPublisher interface {
	PublishStatus(ctx context.Context, e StatusEvent) error
}

// KafkaPublisher keys messages by ride ID so one ride's events stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishStatus(ctx context.Context, e StatusEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal ride status event")
	}
	return infra.ProduceMessage(ctx, p.writer, []byte(e.RideID), body)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// DecodeStatusEvent parses a message value written by KafkaPublisher.
func DecodeStatusEvent(value []byte) (StatusEvent, error) {
	var e StatusEvent
	if err := json.Unmarshal(value, &e); err != nil {
		return StatusEvent{}, errors.Wrap(err, "decode ride status event")
	}
	if e.RideID == "" || e.To == "" {
		return StatusEvent{}, errors.New("ride status event missing ride_id or status")
	}
	return e, nil
}
