package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable is a background component with an explicit lifecycle.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs consumers that share one subscriber and owns that subscriber.
type ConsumerGroup struct {
	subscriber message.Subscriber
	logger     *zap.Logger
	pending    []Runnable
	running    []Runnable
}

// NewConsumerGroup creates an empty group for subscriber.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers consumers to be started by Start.
func (g *ConsumerGroup) Add(consumers ...Runnable) {
	g.pending = append(g.pending, consumers...)
}

// Start starts consumers in registration order. If one fails, those already
// running are stopped again and the error is returned.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for idx, consumer := range g.pending {
		if err := consumer.Start(ctx); err != nil {
			_ = g.stopRunning()

			return fmt.Errorf("start consumer %d: %w", idx, err)
		}

		g.running = append(g.running, consumer)
	}

	g.pending = nil
	g.logger.Info("consumer group started", zap.Int("consumers", len(g.running)))

	return nil
}

// Shutdown stops running consumers, newest first, then closes the subscriber.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("consumer group stopping", zap.Int("consumers", len(g.running)))

	err := g.stopRunning()

	return errors.Join(err, g.subscriber.Close())
}

func (g *ConsumerGroup) stopRunning() error {
	var errs []error

	for idx := len(g.running) - 1; idx >= 0; idx-- {
		errs = append(errs, g.running[idx].Shutdown())
	}

	g.running = nil

	return errors.Join(errs...)
}
