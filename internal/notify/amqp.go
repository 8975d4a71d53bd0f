package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPSink публикует уведомления в очередь; доставкой до конечного
// получателя занимается внешний consumer.
type AMQPSink struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	logger   *zap.Logger
}

// NewAMQPSink подключается к брокеру и объявляет exchange и очередь
func NewAMQPSink(url, exchange, queue string, logger *zap.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue, "", exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("RabbitMQ notification sink initialized",
		zap.String("exchange", exchange),
		zap.String("queue", queue))

	return &AMQPSink{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    queue,
		logger:   logger,
	}, nil
}

// Send публикует уведомление в exchange
func (s *AMQPSink) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, s.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	s.logger.Debug("Notification published",
		zap.Int64("recipient_id", msg.RecipientID),
		zap.String("template", string(msg.Template)))

	return nil
}

// Close закрывает канал и соединение с брокером
func (s *AMQPSink) Close() {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
