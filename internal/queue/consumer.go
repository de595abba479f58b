package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/lexgraph/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Consume delivers messages of queueName to handle with at most
// concurrency messages in flight until ctx is done. In-flight messages are
// finished before Consume returns.
func Consume(ctx context.Context, ch *amqp091.Channel, queueName string, concurrency, maxRetries int, handle Handler) error {
	concurrency = max(concurrency, 1)
	if err := ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		queueName,
		queueName+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", queueName, err)
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Queue] Delivery channel closed", "queue", queueName)
				return fmt.Errorf("delivery channel of %s closed", queueName)
			}
			g.Go(func() error {
				dispatch(ctx, ch, msg, queueName, maxRetries, handle)
				return nil
			})
		}
	}
}

func dispatch(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, maxRetries int, handle Handler) {
	start := time.Now()
	logger.Info("[Queue] Received message", "queue", queueName, "retries", retryCount(msg.Headers))

	err := handle(ctx, msg.Body)
	if err != nil {
		logger.Error("[Queue] Error processing message", "queue", queueName, "err", err)
		HandleProcessingError(context.WithoutCancel(ctx), ch, msg, queueName, maxRetries, err)
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
	logger.Info("[Queue] Message processed", "queue", queueName, "duration", time.Since(start).Round(time.Millisecond).String())
}
