// Package events publishes committed document changes to an AMQP topic
// exchange so other services can follow a group's ledger.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/dukerupert/homeledger/internal/docstore"
)

const publishTimeout = 5 * time.Second

// Event is the message body published for one applied change.
type Event struct {
	Group      string          `json:"group"`
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	ID         string          `json:"id"`
	Fields     docstore.Fields `json:"fields,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// RoutingKey is "<group>.<collection>.<action>", e.g. "g1.transactions.create".
func (e Event) RoutingKey() string {
	return e.Group + "." + e.Collection + "." + e.Action
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Channel is the part of *amqp091.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	ch       Channel
	conn     io.Closer
	exchange string
	queue    chan Event
	logger   *slog.Logger
	now      func() time.Time
}

// Dial connects to the broker at url and declares exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := NewPublisher(ch, exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares a durable topic exchange on ch.
func NewPublisher(ch Channel, exchange string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		queue:    make(chan Event, 256),
		logger:   logger.With("component", "events"),
		now:      time.Now,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, e Event) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,     // exchange
		e.RoutingKey(), // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	p.logger.Debug("published event", "routing_key", e.RoutingKey(), "id", e.ID)
	return nil
}

// Listener queues every group-scoped change for publishing. It never
// blocks the commit path: when the queue is full the event is dropped.
func (p *Publisher) Listener() docstore.ChangeListener {
	return func(changes []docstore.Change) {
		ts := p.now().UTC()
		for _, c := range changes {
			group, kind, ok := docstore.SplitPath(c.Collection)
			if !ok {
				continue
			}
			e := Event{Group: group, Collection: kind, Action: c.Kind.String(), ID: c.ID, Fields: c.Fields, Timestamp: ts}
			select {
			case p.queue <- e:
			default:
				p.logger.Warn("event queue full, dropping event", "routing_key", e.RoutingKey(), "id", e.ID)
			}
		}
	}
}

// Run publishes queued events until ctx is done. Failed publishes are
// logged and not retried.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.queue:
			if err := p.Publish(ctx, e); err != nil {
				p.logger.Error("publish failed", "routing_key", e.RoutingKey(), "id", e.ID, "error", err)
			}
		}
	}
}

func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("close channel: %w", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
