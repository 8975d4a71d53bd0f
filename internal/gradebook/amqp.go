package gradebook

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// GradeUpdate — кортеж обновления оценки для внешнего журнала.
// Grade == nil означает снятие оценки.
type GradeUpdate struct {
	OrganizerID int64    `json:"organizer_id"`
	UserID      int64    `json:"user_id"`
	Grade       *float64 `json:"grade"`
}

// AMQPSink публикует обновления оценок в очередь, которую читает
// внешний журнал оценок
type AMQPSink struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// NewAMQPSink подключается к брокеру и объявляет очередь журнала
func NewAMQPSink(url, queue string, logger *zap.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	logger.Info("Gradebook sink initialized", zap.String("queue", queue))

	return &AMQPSink{
		conn:    conn,
		channel: ch,
		queue:   queue,
		logger:  logger,
	}, nil
}

// Push публикует обновление оценки
func (s *AMQPSink) Push(ctx context.Context, organizerID, userID int64, grade *float64) error {
	body, err := json.Marshal(GradeUpdate{
		OrganizerID: organizerID,
		UserID:      userID,
		Grade:       grade,
	})
	if err != nil {
		return fmt.Errorf("marshal grade update: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish grade update: %w", err)
	}

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
