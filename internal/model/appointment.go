package model

import (
	"time"

	"github.com/google/uuid"
)

// NoGrade — значение "оценка не выставлена" для числовых шкал
const NoGrade float64 = -1

// Registrant — участник записи: либо пользователь, либо группа,
// в зависимости от режима организатора
type Registrant struct {
	UserID  *int64 `json:"user_id,omitempty"`
	GroupID *int64 `json:"group_id,omitempty"`
}

// UserRegistrant создаёт ссылку на пользователя
func UserRegistrant(userID int64) Registrant {
	return Registrant{UserID: &userID}
}

// GroupRegistrant создаёт ссылку на группу
func GroupRegistrant(groupID int64) Registrant {
	return Registrant{GroupID: &groupID}
}

// IsGroup сообщает, ссылается ли участник на группу
func (r Registrant) IsGroup() bool {
	return r.GroupID != nil
}

// ID возвращает идентификатор участника (пользователя или группы)
func (r Registrant) ID() int64 {
	if r.GroupID != nil {
		return *r.GroupID
	}
	if r.UserID != nil {
		return *r.UserID
	}
	return 0
}

// Appointment — запись участника на слот. Attended хранит три состояния:
// nil - оценка ещё не выставлена, 0 - не явился, 1 - присутствовал.
type Appointment struct {
	ID                   int64      `json:"id"`
	SlotID               int64      `json:"slot_id"`
	UserID               *int64     `json:"user_id"`  // взаимоисключающие: либо пользователь,
	GroupID              *int64     `json:"group_id"` // либо группа
	Attended             *int       `json:"attended"`
	Grade                float64    `json:"grade"`
	Feedback             string     `json:"feedback"`
	AllowNewAppointments bool       `json:"allow_new_appointments"`
	Superseded           bool       `json:"superseded"`
	Notified             bool       `json:"notified"`
	EventID              *uuid.UUID `json:"event_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Registrant возвращает участника записи
func (a *Appointment) Registrant() Registrant {
	return Registrant{UserID: a.UserID, GroupID: a.GroupID}
}

// Evaluated сообщает, вынесен ли вердикт по записи
func (a *Appointment) Evaluated() bool {
	return a.Attended != nil
}

// Active сообщает, действует ли запись (не вытеснена повторной записью)
func (a *Appointment) Active() bool {
	return !a.Superseded
}

// DueAppointment — запись вместе с её слотом, как отдаёт выборка
// для напоминаний
type DueAppointment struct {
	Appointment *Appointment `json:"appointment"`
	Slot        *Slot        `json:"slot"`
}
