package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/infrastructure/config"
)

// Connection wraps an AMQP connection plus the channel and durable queue
// the service operates on.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// NewConnection dials the broker and declares the durable processing queue.
func NewConnection(cfg config.RabbitMQConfig, logger *zap.Logger) (*Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}

	logger.Info("connected to rabbitmq", zap.String("queue", cfg.Queue))

	return &Connection{
		conn:    conn,
		channel: channel,
		queue:   cfg.Queue,
		logger:  logger,
	}, nil
}

// IsAlive reports whether the underlying broker connection is still open.
func (c *Connection) IsAlive() bool {
	return !c.conn.IsClosed()
}

// Close shuts down the channel and connection.
func (c *Connection) Close() error {
	if err := c.channel.Close(); err != nil {
		c.logger.Warn("failed to close rabbitmq channel", zap.Error(err))
	}
	return c.conn.Close()
}

// PublishJob enqueues a processing job as a persistent JSON message.
func (c *Connection) PublishJob(ctx context.Context, msg *entities.JobMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		"",      // default exchange
		c.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		c.logger.Error("failed to publish job message",
			zap.Error(err),
			zap.String("job_id", msg.JobID.String()),
		)
		return fmt.Errorf("failed to publish job message: %w", err)
	}

	c.logger.Info("job message published",
		zap.String("job_id", msg.JobID.String()),
		zap.String("queue", c.queue),
	)
	return nil
}

// Consume registers a consumer with prefetch 1 so each worker slot holds
// at most one unacknowledged job at a time.
func (c *Connection) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set channel qos: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // autoAck, messages are acked after the pipeline finishes
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	return deliveries, nil
}
