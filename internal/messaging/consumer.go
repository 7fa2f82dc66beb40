package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler processes a single event. Returning an error nacks the message for redelivery.
type Handler[T any] func(ctx context.Context, event *T) error

// Consumer delivers the messages of one topic to a typed handler.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger
	stop       context.CancelFunc
	stopped    chan struct{}
}

// NewConsumer creates a consumer decoding JSON payloads into T.
func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
) *Consumer[T] {
	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
		stopped:    make(chan struct{}),
	}
}

// Topic returns the topic this consumer subscribes to.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and processes messages in a background goroutine until Shutdown.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, c.stop = context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		c.stop()
		close(c.stopped)

		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	go c.run(ctx, msgs)

	return nil
}

func (c *Consumer[T]) run(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			if err := c.process(ctx, msg); err != nil {
				c.logger.Error("failed to handle event", zap.String("message_uuid", msg.UUID), zap.Error(err))
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}
}

// process returns an error only for failures worth redelivering. Messages
// tagged for another event type, and payloads that cannot be decoded, are
// skipped and acked.
func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) error {
	if eventType := msg.Metadata.Get(MetadataEventType); eventType != "" && eventType != c.topic {
		c.logger.Debug("skipping foreign event", zap.String("event_type", eventType))

		return nil
	}

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Error("dropping undecodable event", zap.String("message_uuid", msg.UUID), zap.Error(err))

		return nil
	}

	if err := c.handler(ctx, &event); err != nil {
		return err
	}

	c.logger.Debug("processed event", zap.String("message_uuid", msg.UUID))

	return nil
}

// Shutdown stops the consumer and waits for the in-flight message to complete.
func (c *Consumer[T]) Shutdown() error {
	if c.stop == nil {
		return nil
	}

	c.stop()
	<-c.stopped

	return nil
}
