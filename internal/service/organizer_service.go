package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/organizer/internal/calendar"
	"github.com/Freeeeeet/organizer/internal/model"
	"go.uber.org/zap"
)

// Counters — сводка по организатору: сколько участников записано и
// сколько уже отмечено присутствовавшими
type Counters struct {
	Registered int `json:"registered"`
	Attended   int `json:"attended"`
	Total      int `json:"total"`
}

// OrganizerService ведёт жизненный цикл организаторов и отвечает на
// сводные запросы по записям
type OrganizerService struct {
	organizerStore   OrganizerStore
	slotStore        SlotStore
	appointmentStore AppointmentStore
	calendar         calendar.Service
	directory        Directory
	gradeSink        GradeSink
	logger           *zap.Logger
	now              func() time.Time
}

func NewOrganizerService(
	organizerStore OrganizerStore,
	slotStore SlotStore,
	appointmentStore AppointmentStore,
	cal calendar.Service,
	directory Directory,
	gradeSink GradeSink,
	logger *zap.Logger,
) *OrganizerService {
	return &OrganizerService{
		organizerStore:   organizerStore,
		slotStore:        slotStore,
		appointmentStore: appointmentStore,
		calendar:         cal,
		directory:        directory,
		gradeSink:        gradeSink,
		logger:           logger,
		now:              time.Now,
	}
}

// Create создаёт организатор. Нулевые границы окна доступности означают
// "не задано" и нормализуются в nil.
func (s *OrganizerService) Create(ctx context.Context, org *model.Organizer) error {
	normalizeWindow(org)
	org.TimeModified = s.now()

	if err := s.organizerStore.Create(ctx, org); err != nil {
		return fmt.Errorf("create organizer: %w", err)
	}

	s.logger.Info("Organizer created",
		zap.Int64("organizer_id", org.ID),
		zap.Int64("course_id", org.CourseID),
		zap.Bool("group_mode", org.IsGroupOrganizer),
	)

	return nil
}

// Update обновляет организатор
func (s *OrganizerService) Update(ctx context.Context, org *model.Organizer) error {
	normalizeWindow(org)
	org.TimeModified = s.now()

	if err := s.organizerStore.Update(ctx, org); err != nil {
		return fmt.Errorf("update organizer: %w", err)
	}

	return nil
}

// Delete удаляет организатор каскадно: слоты, их записи и события
// календаря. Оценки удалённых записей снимаются из журнала.
func (s *OrganizerService) Delete(ctx context.Context, organizerID int64) error {
	org, err := s.organizerStore.GetByID(ctx, organizerID)
	if err != nil {
		return fmt.Errorf("get organizer: %w", err)
	}
	if org == nil {
		return fmt.Errorf("organizer not found")
	}

	slots, err := s.slotStore.GetByOrganizerID(ctx, organizerID)
	if err != nil {
		return fmt.Errorf("get slots: %w", err)
	}

	for _, slot := range slots {
		apps, err := s.appointmentStore.GetBySlotID(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("get appointments: %w", err)
		}

		for _, app := range apps {
			if app.EventID != nil {
				if err := s.calendar.DeleteEvent(ctx, *app.EventID); err != nil {
					s.logger.Warn("Failed to delete appointment calendar event",
						zap.Int64("appointment_id", app.ID),
						zap.Error(err))
				}
			}

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
		}

		if slot.EventID != nil {
			if err := s.calendar.DeleteEvent(ctx, *slot.EventID); err != nil {
				s.logger.Warn("Failed to delete slot calendar event",
					zap.Int64("slot_id", slot.ID),
					zap.Error(err))
			}
		}

		if err := s.slotStore.Delete(ctx, slot.ID); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
	}

	if err := s.organizerStore.Delete(ctx, organizerID); err != nil {
		return fmt.Errorf("delete organizer: %w", err)
	}

	s.logger.Info("Organizer deleted",
		zap.Int64("organizer_id", organizerID),
		zap.Int("slots", len(slots)),
	)

	return nil
}

// LastUserAppointment возвращает последнюю по времени создания запись
// пользователя у организатора, независимо от того, прошёл ли её слот
func (s *OrganizerService) LastUserAppointment(ctx context.Context, org *model.Organizer, userID int64) (*model.Appointment, error) {
	apps, err := s.appointmentStore.GetByOrganizerAndRegistrant(ctx, org.ID, model.UserRegistrant(userID))
	if err != nil {
		return nil, fmt.Errorf("get user appointments: %w", err)
	}

	if len(apps) == 0 {
		return nil, nil
	}
	return apps[0], nil
}

// LastGroupAppointment возвращает последнюю запись группы со сведённым
// вердиктом по всем записям группы у организатора: вердикт появляется
// только когда оценены все записи, и тогда группа считается
// присутствовавшей, если присутствовал хоть кто-то. Пока есть хотя бы
// одна неоценённая запись, сведённый вердикт остаётся пустым.
func (s *OrganizerService) LastGroupAppointment(ctx context.Context, org *model.Organizer, groupID int64) (*model.Appointment, error) {
	apps, err := s.appointmentStore.GetByOrganizerAndRegistrant(ctx, org.ID, model.GroupRegistrant(groupID))
	if err != nil {
		return nil, fmt.Errorf("get group appointments: %w", err)
	}

	if len(apps) == 0 {
		return nil, nil
	}

	evaluated := 0
	someoneAttended := 0
	for _, app := range apps {
		if app.Evaluated() {
			evaluated++
			if *app.Attended == 1 {
				someoneAttended = 1
			}
		}
	}

	last := *apps[0]
	if evaluated == len(apps) {
		merged := someoneAttended
		last.Attended = &merged
	} else {
		last.Attended = nil
	}

	return &last, nil
}

// CountersFor считает сводку по организатору: в групповом режиме по
// группам объединения, иначе по студентам курса
func (s *OrganizerService) CountersFor(ctx context.Context, org *model.Organizer) (*Counters, error) {
	counters := &Counters{}

	if org.IsGroupOrganizer {
		groups, err := s.directory.GroupsInGrouping(ctx, org.GroupingID)
		if err != nil {
			return nil, fmt.Errorf("get grouping groups: %w", err)
		}

		counters.Total = len(groups)
		for _, group := range groups {
			app, err := s.LastGroupAppointment(ctx, org, group.ID)
			if err != nil {
				return nil, err
			}
			tally(counters, app)
		}

		return counters, nil
	}

	students, err := s.directory.Students(ctx, org.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get course students: %w", err)
	}

	counters.Total = len(students)
	for _, userID := range students {
		app, err := s.LastUserAppointment(ctx, org, userID)
		if err != nil {
			return nil, err
		}
		tally(counters, app)
	}

	return counters, nil
}

// NextSlot возвращает ближайший будущий слот преподавателя у организатора
func (s *OrganizerService) NextSlot(ctx context.Context, org *model.Organizer, teacherID int64) (*model.Slot, error) {
	slots, err := s.slotStore.GetUpcomingByTeacher(ctx, org.ID, teacherID, s.now())
	if err != nil {
		return nil, fmt.Errorf("get upcoming slots: %w", err)
	}

	if len(slots) == 0 {
		return nil, nil
	}
	return slots[0], nil
}

// IsStudent проверяет роль пользователя в курсе через внешний справочник
func (s *OrganizerService) IsStudent(ctx context.Context, courseID, userID int64) (bool, error) {
	return s.directory.IsStudent(ctx, courseID, userID)
}

func tally(counters *Counters, app *model.Appointment) {
	if app == nil {
		return
	}
	if app.Evaluated() {
		if *app.Attended == 1 {
			counters.Attended++
		}
		return
	}
	counters.Registered++
}

func normalizeWindow(org *model.Organizer) {
	if org.EnableFrom != nil && org.EnableFrom.IsZero() {
		org.EnableFrom = nil
	}
	if org.EnableUntil != nil && org.EnableUntil.IsZero() {
		org.EnableUntil = nil
	}
}
