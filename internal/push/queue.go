package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vbncursed/vkr/pass-service/internal/logger"
)

// QueueName is the durable queue carrying push jobs.
const QueueName = "pass.updated"

// Job is one queued push: every token gets a silent push on Topic.
type Job struct {
	Topic      string    `json:"topic"`
	Tokens     []string  `json:"tokens"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Notifier is what a Consumer hands decoded jobs to.
type Notifier interface {
	Notify(ctx context.Context, topic string, tokens []string) error
}

// QueueNotifier publishes push jobs instead of sending them. The connection
// is opened lazily and reopened after the broker drops it.
type QueueNotifier struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewQueueNotifier(url string) *QueueNotifier { return &QueueNotifier{url: url} }

func declare(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return err
}

func (q *QueueNotifier) channel() (*amqp.Channel, error) {
	if q.ch != nil && !q.ch.IsClosed() {
		return q.ch, nil
	}
	if q.conn == nil || q.conn.IsClosed() {
		conn, err := amqp.Dial(q.url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		q.conn = conn
	}
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declare(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	q.ch = ch
	return ch, nil
}

func (q *QueueNotifier) Notify(ctx context.Context, topic string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	body, err := json.Marshal(Job{Topic: topic, Tokens: tokens, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	ch, err := q.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	logger.GetLogger(ctx).WithField("devices", len(tokens)).Debug("push job queued")
	return nil
}

func (q *QueueNotifier) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn == nil {
		return nil
	}
	err := q.conn.Close()
	q.conn, q.ch = nil, nil
	return err
}

// Consumer drains the push queue into a Notifier, reconnecting with
// exponential backoff until its context ends.
type Consumer struct {
	url      string
	notifier Notifier
	prefetch int
}

func NewConsumer(url string, notifier Notifier) *Consumer {
	return &Consumer{url: url, notifier: notifier, prefetch: 50}
}

func (c *Consumer) Run(ctx context.Context) error {
	log := logger.GetLogger(ctx).WithField("queue", QueueName)
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	for {
		var conn *amqp.Connection
		err := backoff.RetryNotify(func() error {
			var err error
			conn, err = amqp.Dial(c.url)
			return err
		}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
			log.WithError(err).Warnf("dial broker failed; retrying in %s", wait)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		b.Reset()

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := declare(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				logger.GetLogger(ctx).WithError(err).Warn("push job failed")
				// malformed or undeliverable jobs are dropped, not requeued
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if job.Topic == "" {
		return errors.New("job without topic")
	}
	return c.notifier.Notify(ctx, job.Topic, job.Tokens)
}
