// Package queue carries construction runs over RabbitMQ. Every work queue
// has a _retry sibling that dead-letters back into it after a delay and a
// _dlq sibling for messages that exhausted their retries.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/lexgraph/internal/util"

	"github.com/rabbitmq/amqp091-go"
)

const (
	RunQueue     = "graph_run_queue"
	ResultsQueue = "graph_result_queue"

	retrySuffix = "_retry"
	dlqSuffix   = "_dlq"
)

// Publisher is implemented by *amqp091.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// URL builds the broker URL from RABBITMQ_URL or, when unset, from the
// RABBITMQ_USER/PASSWORD/HOST/PORT variables.
func URL() string {
	if u := util.GetEnv("RABBITMQ_URL"); u != "" {
		return u
	}
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnvString("RABBITMQ_USER", "guest"),
		util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		util.GetEnvString("RABBITMQ_HOST", "localhost"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
}

func Dial(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every work queue together with its retry and
// dead-letter queues. Retried messages wait retryDelay before they are
// routed back to the work queue.
func SetupQueues(ch *amqp091.Channel, queueNames []string, retryDelay time.Duration) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}

		dlqName := name + dlqSuffix
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", dlqName, err)
		}

		retryName := name + retrySuffix
		_, err := ch.QueueDeclare(
			retryName,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			amqp091.Table{
				"x-message-ttl":             int32(retryDelay.Milliseconds()),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", retryName, err)
		}
	}
	return nil
}

// PublishFIFO publishes a persistent JSON message to queueName through the
// default exchange.
func PublishFIFO(ctx context.Context, ch Publisher, queueName string, data []byte, headers amqp091.Table) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queueName, err)
	}
	return nil
}
