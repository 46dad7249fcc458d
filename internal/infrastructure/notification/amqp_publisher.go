package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/notification"
)

// AMQPPublisher publishes notifications to a durable topic exchange. The
// delivery worker consuming the queue owns retries and template rendering;
// this side only guarantees the message reaches the broker.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger

	mu      sync.Mutex
	channel *amqp091.Channel
}

// AMQPPublisherConfig holds settings for the notification publisher
type AMQPPublisherConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// NewAMQPPublisher connects to the broker and declares the notification
// exchange and queue so messages are not lost before a consumer starts.
func NewAMQPPublisher(cfg AMQPPublisherConfig, logger *zap.Logger) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "notifications"
	}

	conn, err := amqp091.DialConfig(cfg.URL, amqp091.Config{
		Dial: amqp091.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg.Exchange, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("Connected to notification broker",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue))

	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

func declareTopology(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if queue == "" {
		return nil
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, "notify.#", exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}
	return nil
}

// Send publishes one notification. Messages are persistent and keyed by
// channel and template so consumers can subscribe selectively.
func (p *AMQPPublisher) Send(ctx context.Context, n notification.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	routingKey := fmt.Sprintf("notify.%s.%s", n.Channel, n.TemplateType)

	publish := func(ch *amqp091.Channel) error {
		return ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    n.IdempotencyKey,
			Timestamp:    time.Now(),
			Body:         body,
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := publish(p.channel); err != nil {
		// One-shot channel reopen covers broker-side channel closes.
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return fmt.Errorf("failed to publish notification: %w", err)
		}
		p.channel.Close()
		p.channel = ch
		if err := publish(p.channel); err != nil {
			return fmt.Errorf("failed to publish notification: %w", err)
		}
	}

	p.logger.Debug("Published notification",
		zap.String("routing_key", routingKey),
		zap.String("booking_id", n.BookingID.String()),
		zap.String("recipient", n.Recipient))

	return nil
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

var _ notification.Dispatcher = (*AMQPPublisher)(nil)
