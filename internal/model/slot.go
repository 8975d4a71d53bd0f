package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot — временное окно, доступное для записи у конкретного преподавателя
type Slot struct {
	ID               int64         `json:"id"`
	OrganizerID      int64         `json:"organizer_id"`
	TeacherID        int64         `json:"teacher_id"`
	StartTime        time.Time     `json:"start_time"`
	Duration         time.Duration `json:"duration"`
	Location         string        `json:"location"`
	LocationLink     string        `json:"location_link"`
	MaxParticipants  int           `json:"max_participants"`
	AbsoluteDeadline *time.Time    `json:"absolute_deadline"` // указатель - может быть не задан
	RelativeDeadline time.Duration `json:"relative_deadline"`
	NotificationTime time.Duration `json:"notification_time"`
	Notified         bool          `json:"notified"`
	Comments         string        `json:"comments"`
	EventID          *uuid.UUID    `json:"event_id"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Deadline возвращает действующий дедлайн записи: абсолютный, если задан,
// иначе время начала минус относительный отступ
func (s *Slot) Deadline() time.Time {
	if s.AbsoluteDeadline != nil {
		return *s.AbsoluteDeadline
	}
	return s.StartTime.Add(-s.RelativeDeadline)
}

// DeadlinePassed сообщает, истёк ли дедлайн записи на слот
func (s *Slot) DeadlinePassed(now time.Time) bool {
	return s.Deadline().Before(now)
}

// ReminderDue сообщает, наступило ли время напоминания о слоте
func (s *Slot) ReminderDue(now time.Time) bool {
	return !s.StartTime.Add(-s.NotificationTime).After(now)
}

// EndTime возвращает время окончания слота
func (s *Slot) EndTime() time.Time {
	return s.StartTime.Add(s.Duration)
}

// Capacity возвращает действующую вместимость слота: в групповом режиме
// запись ведётся на группу целиком, поэтому вместимость всегда 1
func (s *Slot) Capacity(org *Organizer) int {
	if org.IsGroupOrganizer {
		return 1
	}
	return s.MaxParticipants
}
