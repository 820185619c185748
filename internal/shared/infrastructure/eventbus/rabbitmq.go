package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange sync events are published to.
const ExchangeName = "taskcal.sync.events"

// dialExchange connects and declares the durable topic exchange.
func dialExchange(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	// durable, not auto-deleted, not internal, wait for the server
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

func closeAMQP(conn *amqp.Connection, ch *amqp.Channel, logger *slog.Logger) error {
	if ch != nil {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			logger.Warn("error closing channel", "error", err)
		}
	}
	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

// RabbitMQPublisher publishes persistent JSON messages to ExchangeName.
type RabbitMQPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, ch, err := dialExchange(url, ExchangeName)
	if err != nil {
		return nil, err
	}
	logger.Info("RabbitMQ publisher connected", "exchange", ExchangeName)
	return &RabbitMQPublisher{conn: conn, channel: ch, logger: logger}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.Debug("event published", "routing_key", routingKey, "size", len(body))
	return nil
}

// Ping reports whether the broker connection is still open.
func (p *RabbitMQPublisher) Ping(context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("RabbitMQ connection is closed")
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return closeAMQP(p.conn, p.channel, p.logger)
}

// RabbitMQConsumer feeds a queue bound to ExchangeName into a Router.
type RabbitMQConsumer struct {
	mu        sync.Mutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	router    *Router
	logger    *slog.Logger
	closed    chan struct{}
	closeOnce sync.Once
}

// RabbitMQConsumerConfig configures a consumer. An empty Queue declares a
// server-named exclusive queue that disappears with the connection.
type RabbitMQConsumerConfig struct {
	URL    string
	Queue  string
	Logger *slog.Logger
}

func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig) (*RabbitMQConsumer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conn, ch, err := dialExchange(cfg.URL, ExchangeName)
	if err != nil {
		return nil, err
	}

	durable := cfg.Queue != ""
	q, err := ch.QueueDeclare(cfg.Queue, durable, !durable, !durable, false, nil)
	if err != nil {
		_ = closeAMQP(conn, ch, logger)
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	logger.Info("RabbitMQ consumer connected", "queue", q.Name, "exchange", ExchangeName)
	return &RabbitMQConsumer{
		conn:    conn,
		channel: ch,
		queue:   q.Name,
		router:  NewRouter(logger),
		logger:  logger,
		closed:  make(chan struct{}),
	}, nil
}

// Subscribe binds the queue to each of sub's patterns.
func (c *RabbitMQConsumer) Subscribe(sub Subscriber) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range sub.Patterns() {
		if err := c.channel.QueueBind(c.queue, p, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", p, err)
		}
	}
	c.router.Subscribe(sub)
	return nil
}

// Run consumes until ctx is cancelled or Close is called. Messages are
// acknowledged one at a time.
func (c *RabbitMQConsumer) Run(ctx context.Context) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed by broker")
			}
			c.deliver(ctx, d)
		}
	}
}

// deliver dispatches one message. Undecodable bodies are dropped. A failed
// dispatch is requeued once and dropped on redelivery.
func (c *RabbitMQConsumer) deliver(ctx context.Context, d amqp.Delivery) {
	env, err := DecodeEnvelope(d.Body, d.RoutingKey)
	if err != nil {
		c.logger.Error("dropping undecodable message", "routing_key", d.RoutingKey, "error", err)
		_ = d.Reject(false)
		return
	}

	if err := c.router.Dispatch(ctx, env); err != nil {
		requeue := !d.Redelivered
		c.logger.Warn("event not handled",
			"routing_key", env.RoutingKey,
			"event_id", env.EventID,
			"requeue", requeue,
		)
		_ = d.Nack(false, requeue)
		return
	}
	if err := d.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "event_id", env.EventID, "error", err)
	}
}

func (c *RabbitMQConsumer) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })

	c.mu.Lock()
	defer c.mu.Unlock()
	return closeAMQP(c.conn, c.channel, c.logger)
}
