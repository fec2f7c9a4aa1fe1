package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// TaskHandler processes one evaluation task. A returned error sends the
// delivery to the dead-letter queue; it is never redelivered to the same
// worker.
type TaskHandler interface {
	Handle(ctx context.Context, payload EvaluationTaskPayload) error
}

// TaskConsumer consumes evaluation tasks from the durable task queue.
type TaskConsumer struct {
	conn    *amqp.Connection
	handler TaskHandler
	log     zerolog.Logger
	channel *amqp.Channel
	done    chan struct{}
}

func NewTaskConsumer(conn *amqp.Connection, handler TaskHandler, log zerolog.Logger) *TaskConsumer {
	return &TaskConsumer{
		conn:    conn,
		handler: handler,
		log:     log.With().Str("component", "task_consumer").Logger(),
		done:    make(chan struct{}),
	}
}

// Start declares the task queue with its dead-letter pair and begins
// consuming. It returns after the consume loop goroutine is running.
func (c *TaskConsumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.declareTopology(); err != nil {
		_ = c.channel.Close()
		return err
	}

	if err := c.channel.Qos(1, 0, false); err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := c.channel.Consume(
		QueueEvaluationTasks,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("start consuming: %w", err)
	}

	go c.loop(ctx, deliveries)
	c.log.Info().Str("queue", QueueEvaluationTasks).Msg("task consumer started")
	return nil
}

func (c *TaskConsumer) declareTopology() error {
	if err := c.channel.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}
	if err := c.channel.QueueBind(DeadLetterQueue, DeadLetterKey, DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	_, err := c.channel.QueueDeclare(
		QueueEvaluationTasks,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchange,
			"x-dead-letter-routing-key": DeadLetterKey,
		},
	)
	if err != nil {
		return fmt.Errorf("declare task queue: %w", err)
	}
	return nil
}

func (c *TaskConsumer) loop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("task consumer stopping")
			return
		case delivery, ok := <-deliveries:
			if !ok {
				c.log.Warn().Msg("delivery channel closed")
				return
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

func (c *TaskConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var payload EvaluationTaskPayload
	if err := json.Unmarshal(delivery.Body, &payload); err != nil {
		c.log.Error().Err(err).Msg("undecodable task payload, dead-lettering")
		_ = delivery.Nack(false, false)
		return
	}

	log := c.log.With().Str("task_id", payload.TaskID).Logger()
	if err := c.handler.Handle(ctx, payload); err != nil {
		log.Error().Err(err).Msg("task handling failed, dead-lettering")
		_ = delivery.Nack(false, false)
		return
	}
	if err := delivery.Ack(false); err != nil {
		log.Error().Err(err).Msg("failed to ack delivery")
	}
}

// Stop closes the channel and waits for the consume loop to drain.
func (c *TaskConsumer) Stop() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	<-c.done
}
