package eventbus

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProjectStatusExchange is a fanout exchange: every subscriber (in
// practice, the gateway's in-memory status cache) receives every event
// regardless of routing key.
const ProjectStatusExchange = "project_status_changed_exchange"

// ProjectStatusChanged is published by an agent immediately after a
// successful advance_status call, never before the status actually
// changed in the database.
type ProjectStatusChanged struct {
	ProjectID string    `json:"project_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	At        time.Time `json:"at"`
}

// Bus publishes and subscribes to project status change notifications.
// Never load-bearing: the database row is always authoritative, and a
// missed event only means the gateway's cache lags until its next poll.
type Bus struct {
	rabbitMQ RabbitMQ
	logger   *zap.Logger
}

// Params is the fx.In bundle New needs.
type Params struct {
	fx.In

	RabbitMQ  RabbitMQ
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// New declares the fanout exchange and returns a ready Bus.
func New(p Params) (*Bus, error) {
	ch, err := p.RabbitMQ.GetChannel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ProjectStatusExchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, err
	}

	return &Bus{rabbitMQ: p.RabbitMQ, logger: p.Logger}, nil
}

// Module provides a *Bus to the fx graph.
var Module = fx.Options(
	fx.Provide(NewRabbitMQ),
	fx.Provide(New),
)

// Publish broadcasts a project status change. Failures are logged and
// swallowed: the event bus is advisory, not part of the correctness
// contract in spec §4.1.
func (b *Bus) Publish(ctx context.Context, event ProjectStatusChanged) {
	body, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("failed to marshal status change event", zap.Error(err))
		return
	}

	ch, err := b.rabbitMQ.GetChannel()
	if err != nil {
		b.logger.Warn("failed to acquire channel for status change publish", zap.Error(err))
		return
	}
	defer ch.Close()

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(publishCtx, ProjectStatusExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   event.At,
	})
	if err != nil {
		b.logger.Warn("failed to publish status change event", zap.Error(err), zap.String("project_id", event.ProjectID))
	}
}

// Subscribe declares an exclusive queue bound to the fanout exchange and
// invokes handler for every event received until ctx is canceled.
func (b *Bus) Subscribe(ctx context.Context, handler func(ProjectStatusChanged)) error {
	ch, err := b.rabbitMQ.GetChannel()
	if err != nil {
		return err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return err
	}
	if err := ch.QueueBind(q.Name, "", ProjectStatusExchange, false, nil); err != nil {
		ch.Close()
		return err
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return err
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var event ProjectStatusChanged
				if err := json.Unmarshal(d.Body, &event); err != nil {
					b.logger.Warn("failed to unmarshal status change event", zap.Error(err))
					continue
				}
				handler(event)
			}
		}
	}()

	return nil
}
