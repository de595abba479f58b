package queue

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/lexgraph/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// DefaultMaxRetries is how often a message is retried before it is moved to
// the dead-letter queue.
const DefaultMaxRetries = 10

const retriesHeader = "x-retries"

// ErrPermanent marks failures that retrying cannot fix, such as malformed
// requests. Such messages go straight to the dead-letter queue.
var ErrPermanent = errors.New("permanent failure")

func retryCount(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	}
	return 0
}

// HandleProcessingError routes a failed delivery. Permanent failures and
// messages retried maxRetries times are published to the dead-letter
// queue, everything else to the retry queue with an incremented retry
// counter. The original delivery is acked once the copy is published and
// requeued if publishing fails.
func HandleProcessingError(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, maxRetries int, cause error) {
	retries := retryCount(msg.Headers)
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	if cause != nil {
		headers["x-last-error"] = cause.Error()
	}

	target := queueName + retrySuffix
	if errors.Is(cause, ErrPermanent) || retries >= maxRetries {
		target = queueName + dlqSuffix
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", retries, "err", cause)
	} else {
		headers[retriesHeader] = int32(retries + 1)
		logger.Info("[Queue] Scheduling retry", "retry_queue", target, "attempt", retries+1, "err", cause)
	}

	if err := PublishFIFO(ctx, ch, target, msg.Body, headers); err != nil {
		logger.Error("[Queue] Failed to reroute message", "queue", target, "err", err)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			logger.Error("[Queue] Failed to nack message", "err", nackErr)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
