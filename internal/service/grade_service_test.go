package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/Freeeeeet/organizer/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayGradeNumeric(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	org := &model.Organizer{Grade: 20}

	assert.Equal(t, "15.5 / 20", env.gradeService.DisplayGrade(ctx, org, 15.5, nil))
	assert.Equal(t, "12 / 20", env.gradeService.DisplayGrade(ctx, org, 12, nil))
	assert.Equal(t, "0 / 20", env.gradeService.DisplayGrade(ctx, org, 0, nil))
	assert.Equal(t, NoGradeLabel, env.gradeService.DisplayGrade(ctx, org, model.NoGrade, nil))
}

func TestDisplayGradeScale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	scale := &model.Scale{ID: 5, Name: "Verdicts", Items: "poor, fair, good"}
	env.store.Scales().Add(scale)

	org := &model.Organizer{ID: 1, Grade: -5}

	assert.Equal(t, "poor", env.gradeService.DisplayGrade(ctx, org, 1, nil))
	assert.Equal(t, "fair", env.gradeService.DisplayGrade(ctx, org, 2, nil))
	assert.Equal(t, "good", env.gradeService.DisplayGrade(ctx, org, 3, nil))

	// Вне диапазона шкалы - оценки нет
	assert.Equal(t, NoGradeLabel, env.gradeService.DisplayGrade(ctx, org, 0, nil))
	assert.Equal(t, NoGradeLabel, env.gradeService.DisplayGrade(ctx, org, 4, nil))
}

func TestDisplayGradeMissingScale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Шкала 9 не существует - деградация до "no grade" вместо ошибки
	org := &model.Organizer{ID: 1, Grade: -9}
	assert.Equal(t, NoGradeLabel, env.gradeService.DisplayGrade(ctx, org, 2, nil))
}

func TestScaleCacheSkipsRepeatedLookups(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.store.Scales().Add(&model.Scale{ID: 5, Items: "poor, fair, good"})
	org := &model.Organizer{ID: 1, Grade: -5}

	cache := NewScaleCache()
	assert.Equal(t, "fair", env.gradeService.DisplayGrade(ctx, org, 2, cache))

	// Кэш пережил замену шкалы в хранилище - внутри одной пакетной
	// операции метки стабильны
	env.store.Scales().Add(&model.Scale{ID: 5, Items: "bad, ok, great"})
	assert.Equal(t, "fair", env.gradeService.DisplayGrade(ctx, org, 2, cache))

	// Новый кэш видит новые метки
	assert.Equal(t, "ok", env.gradeService.DisplayGrade(ctx, org, 2, NewScaleCache()))
}

func TestGradesMenuNumeric(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	menu, err := env.gradeService.GradesMenu(ctx, &model.Organizer{Grade: 3}, nil)
	require.NoError(t, err)

	assert.Equal(t, NoGradeLabel, menu[-1])
	assert.Equal(t, "3 / 3", menu[3])
	assert.Equal(t, "0 / 3", menu[0])
	assert.Len(t, menu, 5)
}

func TestGradesMenuScale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.store.Scales().Add(&model.Scale{ID: 5, Items: "poor, fair, good"})

	menu, err := env.gradeService.GradesMenu(ctx, &model.Organizer{ID: 1, Grade: -5}, nil)
	require.NoError(t, err)

	assert.Equal(t, NoGradeLabel, menu[0])
	assert.Equal(t, "poor", menu[1])
	assert.Equal(t, "good", menu[3])
	assert.Len(t, menu, 4)
}

func TestGradesMenuMissingScale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.gradeService.GradesMenu(ctx, &model.Organizer{ID: 1, Grade: -9}, nil)
	assert.ErrorIs(t, err, ErrScaleNotFound)
}

func TestGradesMenuUngraded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	menu, err := env.gradeService.GradesMenu(ctx, &model.Organizer{Grade: 0}, nil)
	require.NoError(t, err)
	assert.Empty(t, menu)
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.directory.users[101] = "Student One"

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations", Grade: 10})
	slot := env.createSlot(t, &model.Slot{
		OrganizerID:     org.ID,
		TeacherID:       1,
		StartTime:       env.now.Add(-time.Hour),
		MaxParticipants: 2,
	})
	app := env.createAppointment(t, &model.Appointment{
		SlotID: slot.ID,
		UserID: int64Ptr(101),
		Grade:  model.NoGrade,
	})

	require.NoError(t, env.gradeService.Evaluate(ctx, app.ID, 1, 8, "well done", true))

	stored, err := env.store.Appointments().GetByID(ctx, app.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Attended)
	assert.Equal(t, 1, *stored.Attended)
	assert.Equal(t, float64(8), stored.Grade)
	assert.Equal(t, "well done", stored.Feedback)
	assert.True(t, stored.AllowNewAppointments)

	pushes := env.grades.pushed()
	require.Len(t, pushes, 1)
	assert.Equal(t, org.ID, pushes[0].organizerID)
	assert.Equal(t, int64(101), pushes[0].userID)
	require.NotNil(t, pushes[0].grade)
	assert.Equal(t, float64(8), *pushes[0].grade)

	msgs := env.sink.byTemplate(notify.EvalNotifyStudent)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(101), msgs[0].RecipientID)
	assert.Equal(t, "Student One", msgs[0].Fields.RecipientName)
}

func TestEvaluateWithoutGradeClearsGradebook(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations", Grade: 10})
	slot := env.createSlot(t, &model.Slot{
		OrganizerID:     org.ID,
		TeacherID:       1,
		StartTime:       env.now.Add(-time.Hour),
		MaxParticipants: 2,
	})
	app := env.createAppointment(t, &model.Appointment{
		SlotID: slot.ID,
		UserID: int64Ptr(101),
		Grade:  model.NoGrade,
	})

	// Отметка присутствия без оценки передаёт в журнал снятие оценки
	require.NoError(t, env.gradeService.Evaluate(ctx, app.ID, 0, model.NoGrade, "", false))

	pushes := env.grades.pushed()
	require.Len(t, pushes, 1)
	assert.Nil(t, pushes[0].grade)
}

func TestEvaluateUngradedOrganizerSkipsGradebook(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Consultations", Grade: 0})
	slot := env.createSlot(t, &model.Slot{
		OrganizerID:     org.ID,
		TeacherID:       1,
		StartTime:       env.now.Add(-time.Hour),
		MaxParticipants: 2,
	})
	app := env.createAppointment(t, &model.Appointment{
		SlotID: slot.ID,
		UserID: int64Ptr(101),
		Grade:  model.NoGrade,
	})

	require.NoError(t, env.gradeService.Evaluate(ctx, app.ID, 1, model.NoGrade, "", false))
	assert.Empty(t, env.grades.pushed())
}

func TestEvaluateGroupAppointment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.directory.groups[3] = "Group A"

	org := env.createOrganizer(t, &model.Organizer{CourseID: 7, Name: "Group consultations", IsGroupOrganizer: true, Grade: 10})
	slot := env.createSlot(t, &model.Slot{
		OrganizerID:     org.ID,
		TeacherID:       1,
		StartTime:       env.now.Add(-time.Hour),
		MaxParticipants: 1,
	})
	app := env.createAppointment(t, &model.Appointment{
		SlotID:  slot.ID,
		GroupID: int64Ptr(3),
		Grade:   model.NoGrade,
	})

	require.NoError(t, env.gradeService.Evaluate(ctx, app.ID, 1, 7, "", false))

	// Групповая запись не имеет пользователя - в журнал ничего не уходит
	assert.Empty(t, env.grades.pushed())

	msgs := env.sink.byTemplate(notify.EvalNotifyStudentGroup)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Group A", msgs[0].Fields.GroupName)
}

func TestCleanNum(t *testing.T) {
	assert.Equal(t, "15.5", cleanNum(15.5))
	assert.Equal(t, "12", cleanNum(12))
	assert.Equal(t, "0.25", cleanNum(0.25))
}
