package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// ResultPublisher publishes finished evaluations to the results exchange.
type ResultPublisher interface {
	PublishResult(ctx context.Context, payload EvaluationResultPayload) error
}

type AMQPResultPublisher struct {
	channel *amqp.Channel
	log     zerolog.Logger
}

func NewAMQPResultPublisher(channel *amqp.Channel, log zerolog.Logger) (*AMQPResultPublisher, error) {
	err := channel.ExchangeDeclare(
		ExchangeEvaluationResults,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare results exchange: %w", err)
	}
	return &AMQPResultPublisher{
		channel: channel,
		log:     log.With().Str("component", "result_publisher").Logger(),
	}, nil
}

func (p *AMQPResultPublisher) PublishResult(ctx context.Context, payload EvaluationResultPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal result payload: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		ExchangeEvaluationResults,
		"",    // routing key (fanout)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish result for task %s: %w", payload.TaskID, err)
	}
	p.log.Debug().Str("task_id", payload.TaskID).Str("status", payload.Status).Msg("evaluation result published")
	return nil
}

var _ ResultPublisher = (*AMQPResultPublisher)(nil)
