package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/Freeeeeet/organizer/internal/notify"
	"go.uber.org/zap"
)

// ReminderService выполняет периодический обход записей и слотов и
// рассылает напоминания. Оба прохода идемпотентны: запись помечается
// notified только после успешной отправки, поэтому сбой доставки
// означает повтор на следующем обходе, а не потерю напоминания.
type ReminderService struct {
	slotStore        SlotStore
	appointmentStore AppointmentStore
	stateStore       SchedulerStateStore
	directory        Directory
	sink             notify.Sink
	sendTimeout      time.Duration
	digestTime       time.Duration // время суток рассылки дайджеста, отступ от полуночи
	logger           *zap.Logger
	now              func() time.Time
}

func NewReminderService(
	slotStore SlotStore,
	appointmentStore AppointmentStore,
	stateStore SchedulerStateStore,
	directory Directory,
	sink notify.Sink,
	sendTimeout time.Duration,
	digestTime time.Duration,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		slotStore:        slotStore,
		appointmentStore: appointmentStore,
		stateStore:       stateStore,
		directory:        directory,
		sink:             sink,
		sendTimeout:      sendTimeout,
		digestTime:       digestTime,
		logger:           logger,
		now:              time.Now,
	}
}

// Scan выполняет один обход: напоминания по записям и дайджест
// преподавателям. Сбои отправки отдельным получателям не прерывают обход.
func (s *ReminderService) Scan(ctx context.Context) error {
	now := s.now()

	if err := s.scanAppointments(ctx, now); err != nil {
		return fmt.Errorf("scan appointments: %w", err)
	}

	if err := s.scanDigest(ctx, now); err != nil {
		return fmt.Errorf("scan digest: %w", err)
	}

	return nil
}

// scanAppointments рассылает напоминания участникам, у которых наступило
// время напоминания слота
func (s *ReminderService) scanAppointments(ctx context.Context, now time.Time) error {
	due, err := s.appointmentStore.GetDueForNotification(ctx, now)
	if err != nil {
		return fmt.Errorf("get due appointments: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	sent, failed := 0, 0
	for _, item := range due {
		if err := s.sendAppointmentReminder(ctx, item); err != nil {
			// Запись остаётся непомеченной и будет повторена на
			// следующем обходе
			s.logger.Warn("Failed to send appointment reminder",
				zap.Int64("appointment_id", item.Appointment.ID),
				zap.Error(err))
			failed++
			continue
		}

		if err := s.appointmentStore.MarkNotified(ctx, item.Appointment.ID); err != nil {
			s.logger.Error("Failed to mark appointment notified",
				zap.Int64("appointment_id", item.Appointment.ID),
				zap.Error(err))
			continue
		}
		sent++
	}

	s.logger.Info("Appointment reminders processed",
		zap.Int("due", len(due)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)

	return nil
}

func (s *ReminderService) sendAppointmentReminder(ctx context.Context, item *model.DueAppointment) error {
	app, slot := item.Appointment, item.Slot
	registrant := app.Registrant()

	fields := notify.Fields{
		Date:     slot.StartTime.Format(dateTemplate),
		Time:     slot.StartTime.Format(timeTemplate),
		Location: slot.Location,
	}

	if name, err := s.directory.UserName(ctx, slot.TeacherID); err == nil {
		fields.SenderName = name
	}

	template := notify.AppointmentReminderStudent
	if registrant.IsGroup() {
		template = notify.AppointmentReminderGroup
		if name, err := s.directory.GroupName(ctx, *app.GroupID); err == nil {
			fields.GroupName = name
		}
	} else if name, err := s.directory.UserName(ctx, *app.UserID); err == nil {
		fields.RecipientName = name
	}

	msg := notify.Message{
		Template:    template,
		RecipientID: registrant.ID(),
		SenderID:    slot.TeacherID,
		Fields:      fields,
	}

	// Недоступный транспорт не должен подвешивать обход
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	return s.sink.Send(sendCtx, msg)
}

// scanDigest раз в день, начиная с настроенного времени суток, шлёт
// каждому преподавателю сводку его завтрашних слотов. Факт рассылки
// фиксируется датой в хранилище, а не сравнением времени с допуском:
// перезапуск планировщика не приводит к дублю или пропуску.
func (s *ReminderService) scanDigest(ctx context.Context, now time.Time) error {
	if s.digestTime < 0 {
		// дайджест выключен
		return nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if now.Sub(today) < s.digestTime {
		return nil
	}

	last, err := s.stateStore.LastDigestDate(ctx)
	if err != nil {
		return fmt.Errorf("get last digest date: %w", err)
	}
	if !last.Before(today) {
		// сегодня уже рассылали
		return nil
	}

	tomorrow := today.AddDate(0, 0, 1)
	end := today.AddDate(0, 0, 2)

	slots, err := s.slotStore.GetDueForDigest(ctx, tomorrow, end)
	if err != nil {
		return fmt.Errorf("get slots due for digest: %w", err)
	}

	// Группируем слоты по преподавателю, сохраняя порядок выборки
	byTeacher := make(map[int64][]*model.Slot)
	var teacherIDs []int64
	for _, slot := range slots {
		if _, ok := byTeacher[slot.TeacherID]; !ok {
			teacherIDs = append(teacherIDs, slot.TeacherID)
		}
		byTeacher[slot.TeacherID] = append(byTeacher[slot.TeacherID], slot)
	}

	for _, teacherID := range teacherIDs {
		s.sendDigest(ctx, teacherID, byTeacher[teacherID])
	}

	if err := s.stateStore.SetLastDigestDate(ctx, today); err != nil {
		return fmt.Errorf("set last digest date: %w", err)
	}

	if len(teacherIDs) > 0 {
		s.logger.Info("Teacher digests processed",
			zap.Int("teachers", len(teacherIDs)),
			zap.Int("slots", len(slots)),
		)
	}

	return nil
}

// sendDigest отправляет одному преподавателю сводку его слотов и помечает
// их после успешной отправки. Слоты других преподавателей не затрагиваются.
func (s *ReminderService) sendDigest(ctx context.Context, teacherID int64, slots []*model.Slot) {
	digest := ""
	for _, slot := range slots {
		digest += fmt.Sprintf("%s @ %s\n", slot.StartTime.Format(timeTemplate), slot.Location)
	}

	fields := notify.Fields{Digest: digest}
	if name, err := s.directory.UserName(ctx, teacherID); err == nil {
		fields.RecipientName = name
	}

	msg := notify.Message{
		Template:    notify.AppointmentReminderDigest,
		RecipientID: teacherID,
		SenderID:    teacherID,
		Fields:      fields,
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.sink.Send(sendCtx, msg); err != nil {
		s.logger.Warn("Failed to send teacher digest",
			zap.Int64("teacher_id", teacherID),
			zap.Error(err))
		return
	}

	for _, slot := range slots {
		if err := s.slotStore.MarkNotified(ctx, slot.ID); err != nil {
			s.logger.Error("Failed to mark slot notified",
				zap.Int64("slot_id", slot.ID),
				zap.Error(err))
		}
	}
}
