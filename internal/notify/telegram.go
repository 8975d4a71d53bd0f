package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// TelegramSink доставляет уведомления личным сообщением в телеграм.
// Идентификатор получателя считается его chat id.
type TelegramSink struct {
	bot    *bot.Bot
	logger *zap.Logger
}

// NewTelegramSink создаёт sink поверх бота с указанным токеном
func NewTelegramSink(token string, logger *zap.Logger) (*TelegramSink, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramSink{bot: b, logger: logger}, nil
}

// Send отправляет уведомление получателю
func (s *TelegramSink) Send(ctx context.Context, msg Message) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.RecipientID,
		Text:   RenderText(msg),
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	s.logger.Debug("Notification delivered via telegram",
		zap.Int64("recipient_id", msg.RecipientID),
		zap.String("template", string(msg.Template)))

	return nil
}

// RenderText собирает текст уведомления по ключу шаблона. Тексты
// повторяют краткие варианты языковых ресурсов.
func RenderText(msg Message) string {
	f := msg.Fields
	switch msg.Template {
	case RegisterNotifyTeacher:
		return fmt.Sprintf("Student %s has registered for the time slot on %s at %s in %s.",
			f.SenderName, f.Date, f.Time, f.Location)
	case RegisterNotifyTeacherGroup:
		return fmt.Sprintf("Student %s has registered the group %s for the time slot on %s at %s in %s.",
			f.SenderName, f.GroupName, f.Date, f.Time, f.Location)
	case ReregisterNotifyTeacher:
		return fmt.Sprintf("Student %s has re-registered for the time slot on %s at %s in %s.",
			f.SenderName, f.Date, f.Time, f.Location)
	case ReregisterNotifyTeacherGroup:
		return fmt.Sprintf("Student %s has re-registered the group %s for the time slot on %s at %s in %s.",
			f.SenderName, f.GroupName, f.Date, f.Time, f.Location)
	case UnregisterNotifyTeacher:
		return fmt.Sprintf("Student %s has unregistered from the time slot on %s at %s in %s.",
			f.SenderName, f.Date, f.Time, f.Location)
	case UnregisterNotifyTeacherGroup:
		return fmt.Sprintf("Student %s has unregistered the group %s from the time slot on %s at %s in %s.",
			f.SenderName, f.GroupName, f.Date, f.Time, f.Location)
	case AppointmentReminderStudent:
		return fmt.Sprintf("Reminder: your appointment with %s on %s at %s in %s.",
			f.SenderName, f.Date, f.Time, f.Location)
	case AppointmentReminderGroup:
		return fmt.Sprintf("Reminder: the appointment of your group %s with %s on %s at %s in %s.",
			f.GroupName, f.SenderName, f.Date, f.Time, f.Location)
	case AppointmentReminderDigest:
		return fmt.Sprintf("Your appointments for tomorrow:\n%s", f.Digest)
	case EvalNotifyStudent:
		return fmt.Sprintf("Your appointment on %s at %s in %s has been evaluated.",
			f.Date, f.Time, f.Location)
	case EvalNotifyStudentGroup:
		return fmt.Sprintf("Your group appointment on %s at %s in %s has been evaluated.",
			f.Date, f.Time, f.Location)
	default:
		return fmt.Sprintf("[%s] %s %s %s", msg.Template, f.Date, f.Time, f.Location)
	}
}
