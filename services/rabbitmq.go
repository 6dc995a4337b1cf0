package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lazypandaa/connect/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitNotifier публикует события в topic exchange; ключ маршрутизации user.<id>.
// Consumer на каждом инстансе пересылает их в локальные WebSocket-соединения.
type RabbitNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// InitRabbitMQ инициализирует соединение и exchange
func InitRabbitMQ(url, exchange string) (*RabbitNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	logger.L().Info("RabbitMQ initialized", zap.String("exchange", exchange))
	return &RabbitNotifier{conn: conn, channel: channel, exchange: exchange}, nil
}

func routingKey(userID int64) string {
	return fmt.Sprintf("user.%d", userID)
}

func (r *RabbitNotifier) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.channel.PublishWithContext(ctx,
		r.exchange,
		routingKey(event.UserID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// StartConsumer слушает события и пушит их через WebSocket
func (r *RabbitNotifier) StartConsumer(ctx context.Context, queueName string, manager *WSConnManager) error {
	q, err := r.channel.QueueDeclare(
		queueName,
		false, // durable
		true,  // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := r.channel.QueueBind(q.Name, "user.*", r.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := r.channel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.L().Warn("RabbitMQ delivery channel closed")
					return
				}
				deliver(manager, msg.Body)
			}
		}
	}()
	return nil
}

// deliver разбирает событие и отправляет его адресату
func deliver(manager *WSConnManager, body []byte) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		logger.L().Warn("failed to unmarshal event", zap.Error(err))
		return
	}
	if event.UserID <= 0 {
		return
	}
	manager.Send(event.UserID, body)
}

func (r *RabbitNotifier) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
