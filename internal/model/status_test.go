package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var statusNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func TestAppointmentStatusFacetsAreIndependent(t *testing.T) {
	pastSlot := &Slot{StartTime: statusNow.Add(-time.Hour)}
	futureSlot := &Slot{StartTime: statusNow.Add(time.Hour)}

	// Неоценённая запись будущего слота: ни одного бита
	status := AppointmentStatusAt(&Appointment{Grade: NoGrade}, futureSlot, statusNow)
	assert.Equal(t, AppointmentStatus(0), status)

	// Неоценённая запись прошедшего слота ждёт оценивания
	status = AppointmentStatusAt(&Appointment{Grade: NoGrade}, pastSlot, statusNow)
	assert.True(t, status.Has(StatusPending))
	assert.False(t, status.Has(StatusEvaluated))

	// Оценённый неявившийся: оценён, но не присутствовал и не ждёт
	status = AppointmentStatusAt(&Appointment{Attended: intPtr(0), Grade: 0}, pastSlot, statusNow)
	assert.True(t, status.Has(StatusEvaluated))
	assert.False(t, status.Has(StatusAttended))
	assert.False(t, status.Has(StatusPending))

	// Оценённый присутствовавший с разрешённой повторной записью: все три
	// бита держатся одновременно
	status = AppointmentStatusAt(&Appointment{
		Attended:             intPtr(1),
		Grade:                8,
		AllowNewAppointments: true,
	}, pastSlot, statusNow)
	assert.True(t, status.Has(StatusEvaluated))
	assert.True(t, status.Has(StatusAttended))
	assert.True(t, status.Has(StatusReappointmentAllowed))
	assert.True(t, status.Has(StatusEvaluated|StatusAttended|StatusReappointmentAllowed))
	assert.False(t, status.Has(StatusPending))

	// Разрешение повторной записи не зависит от оценивания
	status = AppointmentStatusAt(&Appointment{
		Grade:                NoGrade,
		AllowNewAppointments: true,
	}, futureSlot, statusNow)
	assert.Equal(t, StatusReappointmentAllowed, status)
}

func TestSlotStateFor(t *testing.T) {
	until := statusNow.Add(-time.Hour)
	expired := &Organizer{EnableUntil: &until}
	active := &Organizer{}

	open := &Slot{StartTime: statusNow.Add(24 * time.Hour), MaxParticipants: 2}
	closed := &Slot{StartTime: statusNow.Add(24 * time.Hour), MaxParticipants: 2, RelativeDeadline: 48 * time.Hour}

	assert.Equal(t, SlotStateExpired, SlotStateFor(expired, open, 0, false, statusNow))
	assert.Equal(t, SlotStatePastDeadline, SlotStateFor(active, closed, 0, false, statusNow))
	assert.Equal(t, SlotStateFull, SlotStateFor(active, open, 2, false, statusNow))
	assert.Equal(t, SlotStateAvailable, SlotStateFor(active, open, 1, false, statusNow))

	// Собственная запись видна и после дедлайна, и в заполненном слоте
	assert.Equal(t, SlotStateAvailable, SlotStateFor(active, closed, 0, true, statusNow))
	assert.Equal(t, SlotStateAvailable, SlotStateFor(active, open, 2, true, statusNow))
}

func TestSlotStateGroupCapacity(t *testing.T) {
	groupOrg := &Organizer{IsGroupOrganizer: true}
	slot := &Slot{StartTime: statusNow.Add(24 * time.Hour), MaxParticipants: 10}

	assert.Equal(t, SlotStateFull, SlotStateFor(groupOrg, slot, 1, false, statusNow))
}

func TestSlotDeadline(t *testing.T) {
	relative := &Slot{StartTime: statusNow.Add(2 * time.Hour), RelativeDeadline: time.Hour}
	assert.Equal(t, statusNow.Add(time.Hour), relative.Deadline())
	assert.False(t, relative.DeadlinePassed(statusNow))

	// Абсолютный дедлайн перекрывает относительный
	abs := statusNow.Add(-time.Minute)
	absolute := &Slot{StartTime: statusNow.Add(2 * time.Hour), RelativeDeadline: time.Hour, AbsoluteDeadline: &abs}
	assert.Equal(t, abs, absolute.Deadline())
	assert.True(t, absolute.DeadlinePassed(statusNow))
}

func TestSlotReminderDue(t *testing.T) {
	slot := &Slot{StartTime: statusNow.Add(time.Hour), NotificationTime: time.Hour}

	// Граница включительно
	assert.True(t, slot.ReminderDue(statusNow))
	assert.True(t, slot.ReminderDue(statusNow.Add(time.Minute)))
	assert.False(t, slot.ReminderDue(statusNow.Add(-time.Minute)))
}

func TestScaleLabels(t *testing.T) {
	scale := &Scale{Items: "poor, fair,good"}
	assert.Equal(t, []string{"poor", "fair", "good"}, scale.Labels())
}

func TestOrganizerExpired(t *testing.T) {
	assert.False(t, (&Organizer{}).Expired(statusNow))

	until := statusNow.Add(-time.Minute)
	assert.True(t, (&Organizer{EnableUntil: &until}).Expired(statusNow))

	future := statusNow.Add(time.Minute)
	assert.False(t, (&Organizer{EnableUntil: &future}).Expired(statusNow))
}
