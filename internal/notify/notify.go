// Package notify publishes pipeline state transitions to a RabbitMQ topic
// exchange so that other services can follow a run as it progresses.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spigell/skillsynx/internal/pipeline"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	DefaultExchange = "skillsynx.transitions"

	anonymousKey = "anonymous"
	eventType    = "pipeline.transition"
)

// Config describes the broker connection.
type Config struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Event is the JSON body of a published transition.
type Event struct {
	Pipeline string    `json:"pipeline"`
	RunID    string    `json:"run_id"`
	UserID   string    `json:"user_id,omitempty"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}

func NewEvent(t pipeline.Transition) Event {
	e := Event{
		Pipeline: t.Pipeline,
		RunID:    t.RunID,
		UserID:   t.UserID,
		From:     string(t.From),
		To:       string(t.To),
		At:       t.At,
	}
	if t.Err != nil {
		e.Error = t.Err.Error()
	}
	return e
}

// RoutingKey returns "<pipeline>.<user>". Dots inside the user id would add
// topic levels, so they are replaced.
func RoutingKey(pipelineName, userID string) string {
	user := strings.TrimSpace(userID)
	if user == "" {
		user = anonymousKey
	}
	user = strings.NewReplacer(".", "_", "*", "_", "#", "_").Replace(user)
	return pipelineName + "." + user
}

// Message builds the routing key and the AMQP message for a transition.
func Message(t pipeline.Transition) (string, amqp.Publishing, error) {
	body, err := json.Marshal(NewEvent(t))
	if err != nil {
		return "", amqp.Publishing{}, fmt.Errorf("encode transition: %w", err)
	}

	return RoutingKey(t.Pipeline, t.UserID), amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    t.At,
		MessageId:    t.RunID + ":" + string(t.To),
		Type:         eventType,
		Body:         body,
	}, nil
}

// Publisher implements pipeline.Observer. Publishing failures are logged and
// never affect the run.
type Publisher struct {
	mu       sync.Mutex
	ch       Channel
	conn     io.Closer
	exchange string
	logger   *zap.Logger
}

// Dial connects to the broker and declares the exchange.
func Dial(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url is empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	p, err := New(ch, cfg.Exchange, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	p.conn = conn

	return p, nil
}

// New declares a durable topic exchange on ch and returns a publisher for it.
func New(ch Channel, exchange string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(exchange) == "" {
		exchange = DefaultExchange
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger.With(zap.String("exchange", exchange)),
	}, nil
}

func (p *Publisher) OnTransition(_ context.Context, t pipeline.Transition) {
	if err := p.Publish(t); err != nil {
		p.logger.Warn("failed to publish transition",
			zap.String("run_id", t.RunID),
			zap.String("to", string(t.To)),
			zap.Error(err),
		)
	}
}

// Publish sends one transition. amqp channels are not safe for concurrent
// use, so publishing is serialised.
func (p *Publisher) Publish(t pipeline.Transition) error {
	key, msg, err := Message(t)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Publish(p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	p.logger.Debug("transition published", zap.String("routing_key", key))
	return nil
}

// Close releases the channel and, when the publisher owns it, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
