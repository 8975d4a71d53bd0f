package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/Freeeeeet/organizer/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Действия, которые платформа публикует в очередь команд
const (
	ActionRegister   = "register"
	ActionUnregister = "unregister"
	ActionEvaluate   = "evaluate"
	ActionDelete     = "delete_organizer"
)

// Command — команда платформы. Ровно одно из полей UserID/GroupID
// заполняется для register и unregister.
type Command struct {
	Action        string `json:"action"`
	SlotID        int64  `json:"slot_id,omitempty"`
	OrganizerID   int64  `json:"organizer_id,omitempty"`
	AppointmentID int64  `json:"appointment_id,omitempty"`

	UserID  *int64 `json:"user_id,omitempty"`
	GroupID *int64 `json:"group_id,omitempty"`

	Attended             int     `json:"attended,omitempty"`
	Grade                float64 `json:"grade,omitempty"`
	Feedback             string  `json:"feedback,omitempty"`
	AllowNewAppointments bool    `json:"allow_new_appointments,omitempty"`
}

// Reader читает команды платформы из очереди и передаёт их сервисам
type Reader struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	queue         string
	registrations *service.RegistrationService
	grades        *service.GradeService
	organizers    *service.OrganizerService
	logger        *zap.Logger
	done          chan struct{}
	cancel        context.CancelFunc
}

// NewReader подключается к брокеру и объявляет очередь команд
func NewReader(
	url, queue string,
	registrations *service.RegistrationService,
	grades *service.GradeService,
	organizers *service.OrganizerService,
	logger *zap.Logger,
) (*Reader, error) {
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
		return nil, fmt.Errorf("declare command queue: %w", err)
	}

	return &Reader{
		conn:          conn,
		channel:       ch,
		queue:         queue,
		registrations: registrations,
		grades:        grades,
		organizers:    organizers,
		logger:        logger,
		done:          make(chan struct{}),
	}, nil
}

// Start запускает чтение команд в фоне
func (r *Reader) Start(ctx context.Context) error {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	deliveries, err := r.channel.Consume(r.queue, "", false, false, false, false, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("start consuming: %w", err)
	}

	r.logger.Info("Command reader started", zap.String("queue", r.queue))

	go func() {
		defer close(r.done)

		for {
			select {
			case delivery, ok := <-deliveries:
				if !ok {
					r.logger.Warn("Command channel closed")
					return
				}
				r.handle(cctx, delivery)
			case <-cctx.Done():
				r.logger.Info("Command reader stopped")
				return
			}
		}
	}()

	return nil
}

// Stop останавливает чтение и закрывает соединение с брокером
func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

// handle разбирает и выполняет одну команду. Ошибки бизнес-правил
// (дедлайн, переполнение) не повод возвращать команду в очередь:
// повтор даст тот же результат, поэтому такие команды подтверждаются.
func (r *Reader) handle(ctx context.Context, delivery amqp.Delivery) {
	var cmd Command
	if err := json.Unmarshal(delivery.Body, &cmd); err != nil {
		r.logger.Error("Failed to unmarshal command",
			zap.Error(err),
			zap.ByteString("body", delivery.Body))
		_ = delivery.Nack(false, false)
		return
	}

	err := r.dispatch(ctx, cmd)
	if err != nil && !isRejection(err) {
		r.logger.Error("Failed to execute command",
			zap.String("action", cmd.Action),
			zap.Error(err))
		_ = delivery.Nack(false, true)
		return
	}

	if err != nil {
		r.logger.Info("Command rejected",
			zap.String("action", cmd.Action),
			zap.Int64("slot_id", cmd.SlotID),
			zap.Error(err))
	}
	_ = delivery.Ack(false)
}

func (r *Reader) dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case ActionRegister:
		registrant, err := commandRegistrant(cmd)
		if err != nil {
			return err
		}
		_, err = r.registrations.Register(ctx, cmd.SlotID, registrant)
		return err
	case ActionUnregister:
		registrant, err := commandRegistrant(cmd)
		if err != nil {
			return err
		}
		return r.registrations.Unregister(ctx, cmd.SlotID, registrant)
	case ActionEvaluate:
		return r.grades.Evaluate(ctx, cmd.AppointmentID,
			cmd.Attended, cmd.Grade, cmd.Feedback, cmd.AllowNewAppointments)
	case ActionDelete:
		return r.organizers.Delete(ctx, cmd.OrganizerID)
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
}

func commandRegistrant(cmd Command) (model.Registrant, error) {
	switch {
	case cmd.UserID != nil:
		return model.UserRegistrant(*cmd.UserID), nil
	case cmd.GroupID != nil:
		return model.GroupRegistrant(*cmd.GroupID), nil
	default:
		return model.Registrant{}, fmt.Errorf("command has neither user_id nor group_id")
	}
}

// isRejection отличает отказ бизнес-правил от инфраструктурного сбоя
func isRejection(err error) bool {
	return errors.Is(err, service.ErrDeadlinePassed) ||
		errors.Is(err, service.ErrSlotFull) ||
		errors.Is(err, service.ErrAlreadyRegistered) ||
		errors.Is(err, service.ErrNotRegistered)
}
