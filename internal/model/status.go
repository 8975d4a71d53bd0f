package model

import "time"

// AppointmentStatus — составной статус записи. Каждый бит независим и
// собирается через OR; статус нигде не хранится и всегда вычисляется
// заново по текущему времени.
type AppointmentStatus uint8

const (
	StatusEvaluated AppointmentStatus = 1 << iota
	StatusAttended
	StatusPending
	StatusReappointmentAllowed
)

// Has проверяет наличие всех битов f в статусе
func (s AppointmentStatus) Has(f AppointmentStatus) bool {
	return s&f == f
}

// AppointmentStatusAt вычисляет составной статус записи на момент now
func AppointmentStatusAt(app *Appointment, slot *Slot, now time.Time) AppointmentStatus {
	var status AppointmentStatus

	evaluated := app.Evaluated()
	if evaluated {
		status |= StatusEvaluated
		if *app.Attended == 1 {
			status |= StatusAttended
		}
	} else if slot.StartTime.Before(now) {
		// вердикта нет, а слот уже прошёл - запись ждёт оценивания
		status |= StatusPending
	}

	if app.AllowNewAppointments {
		status |= StatusReappointmentAllowed
	}

	return status
}

// SlotState — состояние слота глазами конкретного участника
type SlotState string

const (
	SlotStateExpired      SlotState = "expired"       // окно организатора закрылось
	SlotStatePastDeadline SlotState = "past_deadline" // дедлайн записи истёк
	SlotStateFull         SlotState = "full"
	SlotStateAvailable    SlotState = "available"
)

// SlotStateFor вычисляет состояние слота для участника: registered -
// количество действующих записей на слот, hasAppointment - есть ли у
// самого участника запись на этот слот
func SlotStateFor(org *Organizer, slot *Slot, registered int, hasAppointment bool, now time.Time) SlotState {
	if org.Expired(now) {
		return SlotStateExpired
	}
	if slot.DeadlinePassed(now) && !hasAppointment {
		return SlotStatePastDeadline
	}
	if registered >= slot.Capacity(org) && !hasAppointment {
		return SlotStateFull
	}
	return SlotStateAvailable
}
