package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/Freeeeeet/organizer/internal/notify"
	"go.uber.org/zap"
)

// NoGradeLabel — отображение отсутствующей оценки
const NoGradeLabel = "no grade"

// ScaleCache — кэш меток шкал в рамках одной пакетной операции (отчёт,
// таблица оценок). Передаётся вызывающим явно, глобального состояния нет:
// у разных организаторов могут быть разные шкалы.
type ScaleCache struct {
	labels map[int64][]string
}

func NewScaleCache() *ScaleCache {
	return &ScaleCache{labels: make(map[int64][]string)}
}

// GradeService проецирует сырые оценки в отображаемый вид и передаёт их
// во внешний журнал
type GradeService struct {
	organizerStore   OrganizerStore
	slotStore        SlotStore
	appointmentStore AppointmentStore
	scaleStore       ScaleStore
	directory        Directory
	gradeSink        GradeSink
	sink             notify.Sink
	logger           *zap.Logger
	now              func() time.Time
}

func NewGradeService(
	organizerStore OrganizerStore,
	slotStore SlotStore,
	appointmentStore AppointmentStore,
	scaleStore ScaleStore,
	directory Directory,
	gradeSink GradeSink,
	sink notify.Sink,
	logger *zap.Logger,
) *GradeService {
	return &GradeService{
		organizerStore:   organizerStore,
		slotStore:        slotStore,
		appointmentStore: appointmentStore,
		scaleStore:       scaleStore,
		directory:        directory,
		gradeSink:        gradeSink,
		sink:             sink,
		logger:           logger,
		now:              time.Now,
	}
}

// DisplayGrade возвращает отображение оценки для организатора. Числовой
// режим - "оценка / максимум", режим шкалы - метка по 1-based индексу.
// Отсутствующая шкала деградирует до "no grade", а не до ошибки.
func (s *GradeService) DisplayGrade(ctx context.Context, org *model.Organizer, grade float64, cache *ScaleCache) string {
	if org.Grade >= 0 {
		if grade == model.NoGrade {
			return NoGradeLabel
		}
		return cleanNum(grade) + " / " + strconv.Itoa(org.Grade)
	}

	labels, err := s.scaleLabels(ctx, org, cache)
	if err != nil {
		s.logger.Debug("Scale lookup failed, degrading to no grade",
			zap.Int64("organizer_id", org.ID),
			zap.Int("scale_id", -org.Grade),
			zap.Error(err))
		return NoGradeLabel
	}

	index := int(grade)
	if index <= 0 || index > len(labels) {
		return NoGradeLabel
	}
	return labels[index-1]
}

// GradesMenu строит меню выбора оценки для форм оценивания: числовой
// режим - убывающий список "n / max", режим шкалы - метки шкалы
func (s *GradeService) GradesMenu(ctx context.Context, org *model.Organizer, cache *ScaleCache) (map[int]string, error) {
	menu := make(map[int]string)

	if org.Grade > 0 {
		menu[-1] = NoGradeLabel
		for i := org.Grade; i >= 0; i-- {
			menu[i] = strconv.Itoa(i) + " / " + strconv.Itoa(org.Grade)
		}
		return menu, nil
	}

	if org.Grade < 0 {
		labels, err := s.scaleLabels(ctx, org, cache)
		if err != nil {
			return nil, err
		}
		menu[0] = NoGradeLabel
		for i, label := range labels {
			menu[i+1] = label
		}
		return menu, nil
	}

	return menu, nil
}

// Evaluate выставляет вердикт по записи, передаёт оценку в журнал и
// уведомляет участника
func (s *GradeService) Evaluate(ctx context.Context, appointmentID int64, attended int, grade float64, feedback string, allowNewAppointments bool) error {
	app, err := s.appointmentStore.GetByID(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("get appointment: %w", err)
	}
	if app == nil {
		return fmt.Errorf("appointment not found")
	}

	slot, err := s.slotStore.GetByID(ctx, app.SlotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return fmt.Errorf("slot not found")
	}

	org, err := s.organizerStore.GetByID(ctx, slot.OrganizerID)
	if err != nil {
		return fmt.Errorf("get organizer: %w", err)
	}
	if org == nil {
		return fmt.Errorf("organizer not found")
	}

	app.Attended = &attended
	app.Grade = grade
	app.Feedback = feedback
	app.AllowNewAppointments = allowNewAppointments

	if err := s.appointmentStore.Update(ctx, app); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}

	s.logger.Info("Appointment evaluated",
		zap.Int64("appointment_id", app.ID),
		zap.Int("attended", attended),
		zap.Float64("grade", grade),
	)

	if org.Grade != 0 && app.UserID != nil {
		raw := &grade
		if grade == model.NoGrade {
			raw = nil
		}
		if err := s.gradeSink.Push(ctx, org.ID, *app.UserID, raw); err != nil {
			s.logger.Warn("Failed to push grade to gradebook",
				zap.Int64("appointment_id", app.ID),
				zap.Error(err))
		}
	}

	s.notifyEvaluated(ctx, org, slot, app)

	return nil
}

func (s *GradeService) notifyEvaluated(ctx context.Context, org *model.Organizer, slot *model.Slot, app *model.Appointment) {
	registrant := app.Registrant()

	fields := notify.Fields{
		CourseID:      org.CourseID,
		OrganizerName: org.Name,
		Date:          slot.StartTime.Format(dateTemplate),
		Time:          slot.StartTime.Format(timeTemplate),
		Location:      slot.Location,
	}

	template := notify.EvalNotifyStudent
	if registrant.IsGroup() {
		template = notify.EvalNotifyStudentGroup
		if name, err := s.directory.GroupName(ctx, *registrant.GroupID); err == nil {
			fields.GroupName = name
		}
	} else if name, err := s.directory.UserName(ctx, *registrant.UserID); err == nil {
		fields.RecipientName = name
	}

	msg := notify.Message{
		Template:    template,
		RecipientID: registrant.ID(),
		SenderID:    slot.TeacherID,
		Fields:      fields,
	}

	if err := s.sink.Send(ctx, msg); err != nil {
		s.logger.Warn("Failed to send evaluation notification",
			zap.Int64("appointment_id", app.ID),
			zap.Error(err))
	}
}

// scaleLabels возвращает метки шкалы организатора, используя кэш пакета
func (s *GradeService) scaleLabels(ctx context.Context, org *model.Organizer, cache *ScaleCache) ([]string, error) {
	if cache != nil {
		if labels, ok := cache.labels[org.ID]; ok {
			return labels, nil
		}
	}

	scale, err := s.scaleStore.GetByID(ctx, int64(-org.Grade))
	if err != nil {
		return nil, fmt.Errorf("get scale: %w", err)
	}
	if scale == nil {
		return nil, ErrScaleNotFound
	}

	labels := scale.Labels()
	if cache != nil {
		cache.labels[org.ID] = labels
	}

	return labels, nil
}

// cleanNum убирает незначащие нули дробной части, целые не меняются
func cleanNum(num float64) string {
	return strconv.FormatFloat(num, 'f', -1, 64)
}
