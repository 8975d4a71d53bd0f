package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/organizer/internal/calendar"
	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/Freeeeeet/organizer/internal/notify"
	"github.com/Freeeeeet/organizer/internal/repository/inmem"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDirectory — справочник участников для тестов
type fakeDirectory struct {
	users     map[int64]string
	groups    map[int64]string
	memberOf  map[int64]*model.Group
	groupings map[int64][]model.Group
	students  map[int64][]int64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:     make(map[int64]string),
		groups:    make(map[int64]string),
		memberOf:  make(map[int64]*model.Group),
		groupings: make(map[int64][]model.Group),
		students:  make(map[int64][]int64),
	}
}

func (d *fakeDirectory) UserName(ctx context.Context, userID int64) (string, error) {
	name, ok := d.users[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return name, nil
}

func (d *fakeDirectory) GroupName(ctx context.Context, groupID int64) (string, error) {
	name, ok := d.groups[groupID]
	if !ok {
		return "", errors.New("group not found")
	}
	return name, nil
}

func (d *fakeDirectory) GroupOf(ctx context.Context, courseID, userID int64) (*model.Group, error) {
	return d.memberOf[userID], nil
}

func (d *fakeDirectory) GroupsInGrouping(ctx context.Context, groupingID int64) ([]model.Group, error) {
	return d.groupings[groupingID], nil
}

func (d *fakeDirectory) Students(ctx context.Context, courseID int64) ([]int64, error) {
	return d.students[courseID], nil
}

func (d *fakeDirectory) IsStudent(ctx context.Context, courseID, userID int64) (bool, error) {
	for _, id := range d.students[courseID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// recordingSink записывает отправленные уведомления. Первые failures
// отправок завершаются ошибкой.
type recordingSink struct {
	mu       sync.Mutex
	messages []notify.Message
	failures int
}

func (s *recordingSink) Send(ctx context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures > 0 {
		s.failures--
		return errors.New("send failed")
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSink) sent() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]notify.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *recordingSink) byTemplate(template notify.TemplateKey) []notify.Message {
	var out []notify.Message
	for _, msg := range s.sent() {
		if msg.Template == template {
			out = append(out, msg)
		}
	}
	return out
}

type gradePush struct {
	organizerID int64
	userID      int64
	grade       *float64
}

// recordingGradeSink записывает переданные в журнал оценки
type recordingGradeSink struct {
	mu     sync.Mutex
	pushes []gradePush
}

func (s *recordingGradeSink) Push(ctx context.Context, organizerID, userID int64, grade *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushes = append(s.pushes, gradePush{organizerID: organizerID, userID: userID, grade: grade})
	return nil
}

func (s *recordingGradeSink) pushed() []gradePush {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]gradePush, len(s.pushes))
	copy(out, s.pushes)
	return out
}

// fakeCalendar хранит события в памяти
type fakeCalendar struct {
	mu         sync.Mutex
	events     map[uuid.UUID]calendar.Event
	failCreate bool
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[uuid.UUID]calendar.Event)}
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, event calendar.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failCreate {
		return errors.New("calendar unavailable")
	}
	c.events[event.ID] = event
	return nil
}

func (c *fakeCalendar) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.events, id)
	return nil
}

func (c *fakeCalendar) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.events)
}

// testEnv собирает сервисы поверх in-memory хранилища с управляемым
// временем
type testEnv struct {
	store     *inmem.Store
	directory *fakeDirectory
	sink      *recordingSink
	grades    *recordingGradeSink
	calendar  *fakeCalendar

	registrations *RegistrationService
	reminders     *ReminderService
	gradeService  *GradeService
	organizers    *OrganizerService

	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     inmem.NewStore(),
		directory: newFakeDirectory(),
		sink:      &recordingSink{},
		grades:    &recordingGradeSink{},
		calendar:  newFakeCalendar(),
		now:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	logger := zap.NewNop()
	clock := func() time.Time { return env.now }

	env.registrations = NewRegistrationService(
		env.store.Organizers(), env.store.Slots(), env.store.Appointments(),
		env.calendar, env.directory, env.sink, env.grades, false, logger)
	env.registrations.now = clock

	env.reminders = NewReminderService(
		env.store.Slots(), env.store.Appointments(), env.store.SchedulerState(),
		env.directory, env.sink, 5*time.Second, 6*time.Hour, logger)
	env.reminders.now = clock

	env.gradeService = NewGradeService(
		env.store.Organizers(), env.store.Slots(), env.store.Appointments(),
		env.store.Scales(), env.directory, env.grades, env.sink, logger)
	env.gradeService.now = clock

	env.organizers = NewOrganizerService(
		env.store.Organizers(), env.store.Slots(), env.store.Appointments(),
		env.calendar, env.directory, env.grades, logger)
	env.organizers.now = clock

	return env
}

func (e *testEnv) createOrganizer(t *testing.T, org *model.Organizer) *model.Organizer {
	t.Helper()
	require.NoError(t, e.store.Organizers().Create(context.Background(), org))
	return org
}

func (e *testEnv) createSlot(t *testing.T, slot *model.Slot) *model.Slot {
	t.Helper()
	require.NoError(t, e.store.Slots().Create(context.Background(), slot))
	return slot
}

func (e *testEnv) createAppointment(t *testing.T, app *model.Appointment) *model.Appointment {
	t.Helper()
	require.NoError(t, e.store.Appointments().Create(context.Background(), app))
	return app
}

func intPtr(v int) *int { return &v }
