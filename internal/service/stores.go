package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/organizer/internal/model"
)

// Контракты хранилища, с которыми работают сервисы. Боевая реализация -
// pgx-репозитории в internal/repository, тесты используют in-memory
// реализацию из internal/repository/inmem.

type OrganizerStore interface {
	Create(ctx context.Context, org *model.Organizer) error
	GetByID(ctx context.Context, id int64) (*model.Organizer, error)
	Update(ctx context.Context, org *model.Organizer) error
	Delete(ctx context.Context, id int64) error
}

type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	GetByOrganizerID(ctx context.Context, organizerID int64) ([]*model.Slot, error)
	GetUpcomingByTeacher(ctx context.Context, organizerID, teacherID int64, after time.Time) ([]*model.Slot, error)
	GetDueForDigest(ctx context.Context, from, to time.Time) ([]*model.Slot, error)
	MarkNotified(ctx context.Context, slotID int64) error
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id int64) error
}

type AppointmentStore interface {
	Create(ctx context.Context, app *model.Appointment) error
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	GetBySlotID(ctx context.Context, slotID int64) ([]*model.Appointment, error)
	CountActiveBySlot(ctx context.Context, slotID int64) (int, error)
	GetActiveBySlotAndRegistrant(ctx context.Context, slotID int64, registrant model.Registrant) (*model.Appointment, error)
	GetByOrganizerAndRegistrant(ctx context.Context, organizerID int64, registrant model.Registrant) ([]*model.Appointment, error)
	GetDueForNotification(ctx context.Context, now time.Time) ([]*model.DueAppointment, error)
	Update(ctx context.Context, app *model.Appointment) error
	MarkSuperseded(ctx context.Context, id int64) error
	MarkNotified(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type ScaleStore interface {
	GetByID(ctx context.Context, id int64) (*model.Scale, error)
}

type SchedulerStateStore interface {
	LastDigestDate(ctx context.Context) (time.Time, error)
	SetLastDigestDate(ctx context.Context, date time.Time) error
}

// Directory — внешний справочник участников курса: имена, группы, роли.
// Проверка "является ли пользователь студентом" идёт только через него.
type Directory interface {
	UserName(ctx context.Context, userID int64) (string, error)
	GroupName(ctx context.Context, groupID int64) (string, error)
	GroupOf(ctx context.Context, courseID, userID int64) (*model.Group, error)
	GroupsInGrouping(ctx context.Context, groupingID int64) ([]model.Group, error)
	Students(ctx context.Context, courseID int64) ([]int64, error)
	IsStudent(ctx context.Context, courseID, userID int64) (bool, error)
}

// GradeSink — внешний журнал оценок. Ядро только передаёт кортежи,
// nil означает снятие оценки.
type GradeSink interface {
	Push(ctx context.Context, organizerID, userID int64, grade *float64) error
}
