package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/Freeeeeet/organizer/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScanSendsReminderOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.directory.users[1] = "Teacher One"
	env.directory.users[101] = "Student One"

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations"})
	slot := env.createSlot(t, &model.Slot{
		OrganizerID:      org.ID,
		TeacherID:        1,
		StartTime:        env.now.Add(30 * time.Minute),
		Location:         "Room 12",
		MaxParticipants:  2,
		NotificationTime: time.Hour,
	})
	env.createAppointment(t, &model.Appointment{
		SlotID: slot.ID,
		UserID: int64Ptr(101),
		Grade:  model.NoGrade,
	})

	require.NoError(t, env.reminders.Scan(ctx))

	msgs := env.sink.byTemplate(notify.AppointmentReminderStudent)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(101), msgs[0].RecipientID)
	assert.Equal(t, int64(1), msgs[0].SenderID)
	assert.Equal(t, "Teacher One", msgs[0].Fields.SenderName)
	assert.Equal(t, "Room 12", msgs[0].Fields.Location)

	// Повторный обход не дублирует напоминание
	require.NoError(t, env.reminders.Scan(ctx))
	assert.Len(t, env.sink.byTemplate(notify.AppointmentReminderStudent), 1)
}

func TestScanRetriesAfterSendFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations"})
	slot := env.createSlot(t, &model.Slot{
		OrganizerID:      org.ID,
		TeacherID:        1,
		StartTime:        env.now.Add(30 * time.Minute),
		MaxParticipants:  2,
		NotificationTime: time.Hour,
	})
	app := env.createAppointment(t, &model.Appointment{
		SlotID: slot.ID,
		UserID: int64Ptr(101),
		Grade:  model.NoGrade,
	})

	env.sink.failures = 1

	// Сбой доставки не помечает запись, обход завершается без ошибки
	require.NoError(t, env.reminders.Scan(ctx))
	assert.Empty(t, env.sink.sent())

	stored, err := env.store.Appointments().GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.False(t, stored.Notified)

	// Следующий обход повторяет отправку
	require.NoError(t, env.reminders.Scan(ctx))
	assert.Len(t, env.sink.byTemplate(notify.AppointmentReminderStudent), 1)

	stored, err = env.store.Appointments().GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, stored.Notified)
}

func TestScanSkipsNotDueAndSuperseded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations"})

	farSlot := env.createSlot(t, &model.Slot{
		OrganizerID:      org.ID,
		TeacherID:        1,
		StartTime:        env.now.Add(72 * time.Hour),
		MaxParticipants:  2,
		NotificationTime: time.Hour,
	})
	env.createAppointment(t, &model.Appointment{
		SlotID: farSlot.ID,
		UserID: int64Ptr(101),
		Grade:  model.NoGrade,
	})

	dueSlot := env.createSlot(t, &model.Slot{
		OrganizerID:      org.ID,
		TeacherID:        1,
		StartTime:        env.now.Add(30 * time.Minute),
		MaxParticipants:  2,
		NotificationTime: time.Hour,
	})
	env.createAppointment(t, &model.Appointment{
		SlotID:     dueSlot.ID,
		UserID:     int64Ptr(102),
		Grade:      model.NoGrade,
		Superseded: true,
	})

	require.NoError(t, env.reminders.Scan(ctx))
	assert.Empty(t, env.sink.byTemplate(notify.AppointmentReminderStudent))
}

func TestScanGroupReminder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.directory.groups[3] = "Group A"

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Group consultations", IsGroupOrganizer: true})
	slot := env.createSlot(t, &model.Slot{
		OrganizerID:      org.ID,
		TeacherID:        1,
		StartTime:        env.now.Add(30 * time.Minute),
		MaxParticipants:  1,
		NotificationTime: time.Hour,
	})
	env.createAppointment(t, &model.Appointment{
		SlotID:  slot.ID,
		GroupID: int64Ptr(3),
		Grade:   model.NoGrade,
	})

	require.NoError(t, env.reminders.Scan(ctx))

	msgs := env.sink.byTemplate(notify.AppointmentReminderGroup)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(3), msgs[0].RecipientID)
	assert.Equal(t, "Group A", msgs[0].Fields.GroupName)
}

func TestDigestGroupsSlotsByTeacher(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.directory.users[1] = "Teacher One"
	env.directory.users[2] = "Teacher Two"

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations"})

	tomorrow := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	first := env.createSlot(t, &model.Slot{
		OrganizerID: org.ID, TeacherID: 1,
		StartTime: tomorrow.Add(9 * time.Hour), Location: "Room 1", MaxParticipants: 2,
	})
	second := env.createSlot(t, &model.Slot{
		OrganizerID: org.ID, TeacherID: 1,
		StartTime: tomorrow.Add(11 * time.Hour), Location: "Room 2", MaxParticipants: 2,
	})
	third := env.createSlot(t, &model.Slot{
		OrganizerID: org.ID, TeacherID: 2,
		StartTime: tomorrow.Add(10 * time.Hour), Location: "Lab", MaxParticipants: 2,
	})
	// Сегодняшний слот в дайджест не попадает
	env.createSlot(t, &model.Slot{
		OrganizerID: org.ID, TeacherID: 1,
		StartTime: env.now.Add(2 * time.Hour), MaxParticipants: 2,
	})

	require.NoError(t, env.reminders.Scan(ctx))

	msgs := env.sink.byTemplate(notify.AppointmentReminderDigest)
	require.Len(t, msgs, 2)

	byRecipient := make(map[int64]string)
	for _, msg := range msgs {
		byRecipient[msg.RecipientID] = msg.Fields.Digest
	}
	assert.Equal(t, "09:00 @ Room 1\n11:00 @ Room 2\n", byRecipient[1])
	assert.Equal(t, "10:00 @ Lab\n", byRecipient[2])

	for _, id := range []int64{first.ID, second.ID, third.ID} {
		slot, err := env.store.Slots().GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, slot.Notified)
	}

	// Второй обход в тот же день дайджест не повторяет
	require.NoError(t, env.reminders.Scan(ctx))
	assert.Len(t, env.sink.byTemplate(notify.AppointmentReminderDigest), 2)
}

func TestDigestWaitsForConfiguredTime(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.now = time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC) // до 06:00

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations"})
	env.createSlot(t, &model.Slot{
		OrganizerID: org.ID, TeacherID: 1,
		StartTime: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), MaxParticipants: 2,
	})

	require.NoError(t, env.reminders.Scan(ctx))
	assert.Empty(t, env.sink.byTemplate(notify.AppointmentReminderDigest))

	env.now = time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	require.NoError(t, env.reminders.Scan(ctx))
	assert.Len(t, env.sink.byTemplate(notify.AppointmentReminderDigest), 1)
}

func TestDigestDisabled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	disabled := NewReminderService(
		env.store.Slots(), env.store.Appointments(), env.store.SchedulerState(),
		env.directory, env.sink, 5*time.Second, -1, zap.NewNop())
	disabled.now = func() time.Time { return env.now }

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations"})
	env.createSlot(t, &model.Slot{
		OrganizerID: org.ID, TeacherID: 1,
		StartTime: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), MaxParticipants: 2,
	})

	require.NoError(t, disabled.Scan(ctx))
	assert.Empty(t, env.sink.sent())
}

func TestDigestSendFailureKeepsSlotsUnmarked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations"})

	tomorrow := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	first := env.createSlot(t, &model.Slot{
		OrganizerID: org.ID, TeacherID: 1,
		StartTime: tomorrow.Add(9 * time.Hour), MaxParticipants: 2,
	})
	second := env.createSlot(t, &model.Slot{
		OrganizerID: org.ID, TeacherID: 2,
		StartTime: tomorrow.Add(10 * time.Hour), MaxParticipants: 2,
	})

	// Первая отправка (преподаватель 1) срывается, вторая проходит
	env.sink.failures = 1

	require.NoError(t, env.reminders.Scan(ctx))

	msgs := env.sink.byTemplate(notify.AppointmentReminderDigest)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(2), msgs[0].RecipientID)

	slot, err := env.store.Slots().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, slot.Notified)

	slot, err = env.store.Slots().GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, slot.Notified)
}

func TestScanEmptyStore(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.reminders.Scan(context.Background()))
	assert.Empty(t, env.sink.sent())
}
