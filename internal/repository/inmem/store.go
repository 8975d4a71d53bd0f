package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/organizer/internal/model"
)

// Store — потокобезопасное in-memory хранилище. Репозитории-представления
// (Organizers, Slots, ...) реализуют контракты сервисного слоя над общим
// набором данных. Используется тестами сервисов.
type Store struct {
	mu             sync.RWMutex
	organizers     map[int64]*model.Organizer
	slots          map[int64]*model.Slot
	appointments   map[int64]*model.Appointment
	scales         map[int64]*model.Scale
	lastDigestDate time.Time
	nextID         int64
}

func NewStore() *Store {
	return &Store{
		organizers:   make(map[int64]*model.Organizer),
		slots:        make(map[int64]*model.Slot),
		appointments: make(map[int64]*model.Appointment),
		scales:       make(map[int64]*model.Scale),
	}
}

func (s *Store) Organizers() *OrganizerRepository     { return &OrganizerRepository{s} }
func (s *Store) Slots() *SlotRepository               { return &SlotRepository{s} }
func (s *Store) Appointments() *AppointmentRepository { return &AppointmentRepository{s} }
func (s *Store) Scales() *ScaleRepository             { return &ScaleRepository{s} }
func (s *Store) SchedulerState() *SchedulerStateRepository {
	return &SchedulerStateRepository{s}
}

func (s *Store) nextSeq() int64 {
	s.nextID++
	return s.nextID
}

// --- организаторы ---

type OrganizerRepository struct {
	store *Store
}

func (r *OrganizerRepository) Create(ctx context.Context, org *model.Organizer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	org.ID = r.store.nextSeq()
	copied := *org
	r.store.organizers[org.ID] = &copied
	return nil
}

func (r *OrganizerRepository) GetByID(ctx context.Context, id int64) (*model.Organizer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	org, ok := r.store.organizers[id]
	if !ok {
		return nil, nil
	}
	copied := *org
	return &copied, nil
}

func (r *OrganizerRepository) Update(ctx context.Context, org *model.Organizer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.organizers[org.ID]; !ok {
		return fmt.Errorf("organizer not found")
	}
	copied := *org
	r.store.organizers[org.ID] = &copied
	return nil
}

func (r *OrganizerRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.organizers[id]; !ok {
		return fmt.Errorf("organizer not found")
	}
	delete(r.store.organizers, id)
	return nil
}

// --- слоты ---

type SlotRepository struct {
	store *Store
}

func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot.ID = r.store.nextSeq()
	slot.CreatedAt = time.Now()
	copied := *slot
	r.store.slots[slot.ID] = &copied
	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	slot, ok := r.store.slots[id]
	if !ok {
		return nil, nil
	}
	copied := *slot
	return &copied, nil
}

func (r *SlotRepository) GetByOrganizerID(ctx context.Context, organizerID int64) ([]*model.Slot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var slots []*model.Slot
	for _, slot := range r.store.slots {
		if slot.OrganizerID == organizerID {
			copied := *slot
			slots = append(slots, &copied)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	return slots, nil
}

func (r *SlotRepository) GetUpcomingByTeacher(ctx context.Context, organizerID, teacherID int64, after time.Time) ([]*model.Slot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var slots []*model.Slot
	for _, slot := range r.store.slots {
		if slot.OrganizerID == organizerID && slot.TeacherID == teacherID && slot.StartTime.After(after) {
			copied := *slot
			slots = append(slots, &copied)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	return slots, nil
}

func (r *SlotRepository) GetDueForDigest(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var slots []*model.Slot
	for _, slot := range r.store.slots {
		if slot.Notified {
			continue
		}
		if slot.StartTime.Before(from) || !slot.StartTime.Before(to) {
			continue
		}
		copied := *slot
		slots = append(slots, &copied)
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].TeacherID != slots[j].TeacherID {
			return slots[i].TeacherID < slots[j].TeacherID
		}
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
	return slots, nil
}

func (r *SlotRepository) MarkNotified(ctx context.Context, slotID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot, ok := r.store.slots[slotID]
	if !ok {
		return fmt.Errorf("slot not found")
	}
	slot.Notified = true
	return nil
}

func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.slots[slot.ID]; !ok {
		return fmt.Errorf("slot not found")
	}
	copied := *slot
	r.store.slots[slot.ID] = &copied
	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.slots[id]; !ok {
		return fmt.Errorf("slot not found")
	}
	delete(r.store.slots, id)
	return nil
}

// --- записи ---

type AppointmentRepository struct {
	store *Store
}

func (r *AppointmentRepository) Create(ctx context.Context, app *model.Appointment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	app.ID = r.store.nextSeq()
	app.CreatedAt = time.Now()
	copied := *app
	r.store.appointments[app.ID] = &copied
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	app, ok := r.store.appointments[id]
	if !ok {
		return nil, nil
	}
	copied := *app
	return &copied, nil
}

func (r *AppointmentRepository) GetBySlotID(ctx context.Context, slotID int64) ([]*model.Appointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var apps []*model.Appointment
	for _, app := range r.store.appointments {
		if app.SlotID == slotID {
			copied := *app
			apps = append(apps, &copied)
		}
	}

	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps, nil
}

func (r *AppointmentRepository) CountActiveBySlot(ctx context.Context, slotID int64) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, app := range r.store.appointments {
		if app.SlotID == slotID && !app.Superseded {
			count++
		}
	}
	return count, nil
}

func (r *AppointmentRepository) GetActiveBySlotAndRegistrant(ctx context.Context, slotID int64, registrant model.Registrant) (*model.Appointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var found *model.Appointment
	for _, app := range r.store.appointments {
		if app.SlotID != slotID || app.Superseded || !registrantMatches(app, registrant) {
			continue
		}
		if found == nil || app.ID > found.ID {
			found = app
		}
	}

	if found == nil {
		return nil, nil
	}
	copied := *found
	return &copied, nil
}

func (r *AppointmentRepository) GetByOrganizerAndRegistrant(ctx context.Context, organizerID int64, registrant model.Registrant) ([]*model.Appointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var apps []*model.Appointment
	for _, app := range r.store.appointments {
		slot, ok := r.store.slots[app.SlotID]
		if !ok || slot.OrganizerID != organizerID || !registrantMatches(app, registrant) {
			continue
		}
		copied := *app
		apps = append(apps, &copied)
	}

	// новые записи первыми
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID > apps[j].ID })
	return apps, nil
}

func (r *AppointmentRepository) GetDueForNotification(ctx context.Context, now time.Time) ([]*model.DueAppointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var due []*model.DueAppointment
	for _, app := range r.store.appointments {
		if app.Notified || app.Superseded {
			continue
		}
		slot, ok := r.store.slots[app.SlotID]
		if !ok || !slot.ReminderDue(now) {
			continue
		}
		appCopy := *app
		slotCopy := *slot
		due = append(due, &model.DueAppointment{Appointment: &appCopy, Slot: &slotCopy})
	}

	sort.Slice(due, func(i, j int) bool { return due[i].Appointment.ID < due[j].Appointment.ID })
	return due, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, app *model.Appointment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.appointments[app.ID]
	if !ok {
		return fmt.Errorf("appointment not found")
	}
	stored.Attended = app.Attended
	stored.Grade = app.Grade
	stored.Feedback = app.Feedback
	stored.AllowNewAppointments = app.AllowNewAppointments
	return nil
}

func (r *AppointmentRepository) MarkSuperseded(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	app, ok := r.store.appointments[id]
	if !ok {
		return fmt.Errorf("appointment not found")
	}
	app.Superseded = true
	return nil
}

func (r *AppointmentRepository) MarkNotified(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	app, ok := r.store.appointments[id]
	if !ok {
		return fmt.Errorf("appointment not found")
	}
	app.Notified = true
	return nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.appointments[id]; !ok {
		return fmt.Errorf("appointment not found")
	}
	delete(r.store.appointments, id)
	return nil
}

// --- шкалы ---

type ScaleRepository struct {
	store *Store
}

// Add добавляет шкалу (для подготовки данных в тестах)
func (r *ScaleRepository) Add(scale *model.Scale) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if scale.ID == 0 {
		scale.ID = r.store.nextSeq()
	}
	copied := *scale
	r.store.scales[scale.ID] = &copied
}

func (r *ScaleRepository) GetByID(ctx context.Context, id int64) (*model.Scale, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	scale, ok := r.store.scales[id]
	if !ok {
		return nil, nil
	}
	copied := *scale
	return &copied, nil
}

// --- состояние планировщика ---

type SchedulerStateRepository struct {
	store *Store
}

func (r *SchedulerStateRepository) LastDigestDate(ctx context.Context) (time.Time, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.lastDigestDate, nil
}

func (r *SchedulerStateRepository) SetLastDigestDate(ctx context.Context, date time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.lastDigestDate = date
	return nil
}

func registrantMatches(app *model.Appointment, registrant model.Registrant) bool {
	if registrant.IsGroup() {
		return app.GroupID != nil && *app.GroupID == *registrant.GroupID
	}
	return app.UserID != nil && registrant.UserID != nil && *app.UserID == *registrant.UserID
}
