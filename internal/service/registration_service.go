package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/organizer/internal/calendar"
	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/Freeeeeet/organizer/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Шаблоны даты и времени в подстановочных полях уведомлений
const (
	dateTemplate = "Mon, 2 Jan 2006"
	timeTemplate = "15:04"
)

// RegistrationService — единственная точка изменения состава записей.
// Все проверки дедлайна, вместимости и повторной записи проходят здесь.
type RegistrationService struct {
	organizerStore   OrganizerStore
	slotStore        SlotStore
	appointmentStore AppointmentStore
	calendar         calendar.Service
	directory        Directory
	sink             notify.Sink
	gradeSink        GradeSink
	digestOnly       bool // преподаватели получают только дайджест вместо разовых уведомлений о записи
	logger           *zap.Logger
	now              func() time.Time

	mu        sync.Mutex
	slotLocks map[int64]*sync.Mutex
}

func NewRegistrationService(
	organizerStore OrganizerStore,
	slotStore SlotStore,
	appointmentStore AppointmentStore,
	cal calendar.Service,
	directory Directory,
	sink notify.Sink,
	gradeSink GradeSink,
	digestOnly bool,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		organizerStore:   organizerStore,
		slotStore:        slotStore,
		appointmentStore: appointmentStore,
		calendar:         cal,
		directory:        directory,
		sink:             sink,
		gradeSink:        gradeSink,
		digestOnly:       digestOnly,
		logger:           logger,
		now:              time.Now,
		slotLocks:        make(map[int64]*sync.Mutex),
	}
}

// lockSlot возвращает мьютекс слота. Все операции над одним слотом
// сериализуются, иначе два конкурентных Register могут одновременно
// увидеть свободное место и переполнить слот.
func (s *RegistrationService) lockSlot(slotID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.slotLocks[slotID]
	if !ok {
		lock = &sync.Mutex{}
		s.slotLocks[slotID] = lock
	}
	return lock
}

// Register записывает участника на слот
func (s *RegistrationService) Register(ctx context.Context, slotID int64, registrant model.Registrant) (*model.Appointment, error) {
	lock := s.lockSlot(slotID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	slot, err := s.slotStore.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("slot not found")
	}

	org, err := s.organizerStore.GetByID(ctx, slot.OrganizerID)
	if err != nil {
		return nil, fmt.Errorf("get organizer: %w", err)
	}
	if org == nil {
		return nil, fmt.Errorf("organizer not found")
	}

	// Режим организатора определяет тип участника
	if org.IsGroupOrganizer != registrant.IsGroup() {
		if org.IsGroupOrganizer {
			return nil, fmt.Errorf("organizer accepts group registrations only")
		}
		return nil, fmt.Errorf("organizer accepts individual registrations only")
	}

	if slot.DeadlinePassed(now) {
		return nil, ErrDeadlinePassed
	}

	count, err := s.appointmentStore.CountActiveBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if count >= slot.Capacity(org) {
		return nil, ErrSlotFull
	}

	existing, err := s.appointmentStore.GetActiveBySlotAndRegistrant(ctx, slotID, registrant)
	if err != nil {
		return nil, fmt.Errorf("get existing appointment: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}

	// Действующая запись в другом ещё актуальном слоте того же организатора
	// блокирует повторную запись, если преподаватель не разрешил её явно.
	// Разрешённая повторная запись вытесняет старую, не удаляя её: история
	// оценивания сохраняется.
	reregister := false
	prior, priorSlot, err := s.activePriorAppointment(ctx, org.ID, slotID, registrant)
	if err != nil {
		return nil, err
	}
	if prior != nil && priorSlot.StartTime.After(now) {
		if !prior.AllowNewAppointments {
			return nil, ErrAlreadyRegistered
		}

		if err := s.appointmentStore.MarkSuperseded(ctx, prior.ID); err != nil {
			return nil, fmt.Errorf("supersede prior appointment: %w", err)
		}
		if prior.EventID != nil {
			if err := s.calendar.DeleteEvent(ctx, *prior.EventID); err != nil {
				s.logger.Warn("Failed to delete calendar event of superseded appointment",
					zap.Int64("appointment_id", prior.ID),
					zap.Error(err))
			}
		}
		reregister = true
	}

	app := &model.Appointment{
		SlotID:  slotID,
		UserID:  registrant.UserID,
		GroupID: registrant.GroupID,
		Grade:   model.NoGrade,
	}

	eventID := uuid.New()
	event := calendar.Event{
		ID:        eventID,
		OwnerID:   registrant.ID(),
		Title:     org.Name,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime(),
		Location:  slot.Location,
	}
	if err := s.calendar.CreateEvent(ctx, event); err != nil {
		// Запись важнее события календаря, не срываем регистрацию
		s.logger.Warn("Failed to create calendar event",
			zap.Int64("slot_id", slotID),
			zap.Error(err))
	} else {
		app.EventID = &eventID
	}

	if err := s.appointmentStore.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("Registrant registered",
		zap.Int64("appointment_id", app.ID),
		zap.Int64("slot_id", slotID),
		zap.Int64("registrant_id", registrant.ID()),
		zap.Bool("group", registrant.IsGroup()),
		zap.Bool("reregister", reregister),
	)

	if !s.digestOnly {
		template := notify.RegisterNotifyTeacher
		if reregister {
			template = notify.ReregisterNotifyTeacher
		}
		s.notifyTeacher(ctx, template, org, slot, registrant)
	}

	return app, nil
}

// Unregister снимает запись участника со слота
func (s *RegistrationService) Unregister(ctx context.Context, slotID int64, registrant model.Registrant) error {
	lock := s.lockSlot(slotID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	slot, err := s.slotStore.GetByID(ctx, slotID)
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

	if slot.DeadlinePassed(now) {
		return ErrDeadlinePassed
	}

	app, err := s.appointmentStore.GetActiveBySlotAndRegistrant(ctx, slotID, registrant)
	if err != nil {
		return fmt.Errorf("get appointment: %w", err)
	}
	if app == nil {
		return ErrNotRegistered
	}

	if app.EventID != nil {
		if err := s.calendar.DeleteEvent(ctx, *app.EventID); err != nil {
			s.logger.Warn("Failed to delete calendar event",
				zap.Int64("appointment_id", app.ID),
				zap.Error(err))
		}
	}

	// Удалённая оценённая запись снимает оценку из журнала
	if app.Evaluated() && app.UserID != nil && org.Grade != 0 {
		if err := s.gradeSink.Push(ctx, org.ID, *app.UserID, nil); err != nil {
			s.logger.Warn("Failed to clear grade",
				zap.Int64("appointment_id", app.ID),
				zap.Error(err))
		}
	}

	if err := s.appointmentStore.Delete(ctx, app.ID); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	s.logger.Info("Registrant unregistered",
		zap.Int64("appointment_id", app.ID),
		zap.Int64("slot_id", slotID),
		zap.Int64("registrant_id", registrant.ID()),
	)

	// Уведомления о снятии записи отправляются всегда, независимо от
	// настройки дайджеста
	s.notifyTeacher(ctx, notify.UnregisterNotifyTeacher, org, slot, registrant)

	return nil
}

// activePriorAppointment находит новейшую действующую запись участника в
// другом слоте организатора вместе с её слотом
func (s *RegistrationService) activePriorAppointment(ctx context.Context, organizerID, slotID int64, registrant model.Registrant) (*model.Appointment, *model.Slot, error) {
	apps, err := s.appointmentStore.GetByOrganizerAndRegistrant(ctx, organizerID, registrant)
	if err != nil {
		return nil, nil, fmt.Errorf("get prior appointments: %w", err)
	}

	for _, app := range apps {
		if !app.Active() || app.SlotID == slotID {
			continue
		}

		slot, err := s.slotStore.GetByID(ctx, app.SlotID)
		if err != nil {
			return nil, nil, fmt.Errorf("get prior slot: %w", err)
		}
		if slot == nil {
			continue
		}
		return app, slot, nil
	}

	return nil, nil, nil
}

// notifyTeacher уведомляет преподавателя слота о изменении состава записей.
// Сбой доставки не считается ошибкой операции.
func (s *RegistrationService) notifyTeacher(ctx context.Context, template notify.TemplateKey, org *model.Organizer, slot *model.Slot, registrant model.Registrant) {
	fields := notify.Fields{
		CourseID:      org.CourseID,
		OrganizerName: org.Name,
		Date:          slot.StartTime.Format(dateTemplate),
		Time:          slot.StartTime.Format(timeTemplate),
		Location:      slot.Location,
	}

	if name, err := s.directory.UserName(ctx, slot.TeacherID); err == nil {
		fields.RecipientName = name
	}

	if registrant.IsGroup() {
		template += ":group"
		if name, err := s.directory.GroupName(ctx, *registrant.GroupID); err == nil {
			fields.GroupName = name
			fields.SenderName = name
		}
	} else {
		if name, err := s.directory.UserName(ctx, *registrant.UserID); err == nil {
			fields.SenderName = name
		}
	}

	msg := notify.Message{
		Template:    template,
		RecipientID: slot.TeacherID,
		SenderID:    registrant.ID(),
		Fields:      fields,
	}

	if err := s.sink.Send(ctx, msg); err != nil {
		s.logger.Warn("Failed to send registration notification",
			zap.String("template", string(template)),
			zap.Int64("teacher_id", slot.TeacherID),
			zap.Error(err))
	}
}
