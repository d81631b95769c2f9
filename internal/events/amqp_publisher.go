package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/metrics"
)

const publishTimeout = 5 * time.Second

// channel часть *amqp.Channel, которая нужна издателю.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher публикует события обращений в durable очередь RabbitMQ.
// Ошибки публикации логируются и не влияют на уже зафиксированную операцию.
type AMQPPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    channel
	queue string
}

// NewAMQPPublisher подключается к брокеру и объявляет очередь.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: не удалось подключиться к RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: не удалось открыть канал: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("events: не удалось объявить очередь %s: %w", queue, err)
	}

	logger.L().WithField("queue", queue).Info("events: подключено к RabbitMQ")
	return &AMQPPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func newPublisherWithChannel(ch channel, queue string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, queue: queue}
}

// Publish отправляет событие как persistent JSON сообщение.
func (p *AMQPPublisher) Publish(ctx context.Context, event entity.IncidentEvent) {
	err := p.publish(ctx, event)
	metrics.EventsPublishedTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		logger.L().WithFields(logrus.Fields{
			"incident_id": event.IncidentID,
			"event":       event.Type,
		}).WithError(err).Warn("events: событие не опубликовано")
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, event entity.IncidentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Контекст запроса может быть уже отменён, публикация идёт после ответа клиенту.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(pubCtx,
		"",
		p.queue,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
			MessageId:    event.IncidentID.String() + ":" + event.Type + ":" + event.OccurredAt.Format(time.RFC3339Nano),
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

// Close закрывает канал и соединение.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
