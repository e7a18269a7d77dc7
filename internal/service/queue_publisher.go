package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/apartment-management/internal/queue"
)

// EventPublisher delivers visitor events.  Callers treat failures as
// non-fatal: the request that produced the event has already succeeded.
type EventPublisher interface {
	PublishVisitorEvent(ctx context.Context, ev queue.VisitorEvent) error
}

// NopPublisher drops every event.  It is used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishVisitorEvent(context.Context, queue.VisitorEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to the visitor queue.  A
// connection is dialled per publish; visitor traffic is low.
type AMQPPublisher struct {
	URL string
	Log *slog.Logger
}

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{URL: url, Log: log.With("component", "visitor-publisher")}
}

// PublishVisitorEvent declares the durable queue and publishes ev on the
// default exchange.  Errors are logged and returned.
func (p *AMQPPublisher) PublishVisitorEvent(ctx context.Context, ev queue.VisitorEvent) error {
	err := p.publish(ctx, ev)
	if err != nil {
		p.Log.ErrorContext(ctx, "publish visitor event failed", "type", ev.Type, "visitor_id", ev.VisitorID, "err", err)
	}
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.VisitorEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.VisitorQueueName, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	return errors.Wrap(ch.PublishWithContext(ctx,
		"",                     // default exchange
		queue.VisitorQueueName, // routing key = queue name
		false,                  // mandatory
		false,                  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	), "publish")
}
