package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, slot_id, user_id, group_id, attended, grade, feedback,
		allow_new_appointments, superseded, notified, event_id, created_at`

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var app model.Appointment

	err := row.Scan(
		&app.ID,
		&app.SlotID,
		&app.UserID,
		&app.GroupID,
		&app.Attended,
		&app.Grade,
		&app.Feedback,
		&app.AllowNewAppointments,
		&app.Superseded,
		&app.Notified,
		&app.EventID,
		&app.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &app, nil
}

// Create создаёт новую запись на слот
func (r *AppointmentRepository) Create(ctx context.Context, app *model.Appointment) error {
	query := `
		INSERT INTO appointments (slot_id, user_id, group_id, attended, grade, feedback,
			allow_new_appointments, superseded, notified, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		app.SlotID,
		app.UserID,
		app.GroupID,
		app.Attended,
		app.Grade,
		app.Feedback,
		app.AllowNewAppointments,
		app.Superseded,
		app.Notified,
		app.EventID,
	).Scan(&app.ID, &app.CreatedAt)

	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	app, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return app, nil
}

// GetBySlotID получает все записи на слот
func (r *AppointmentRepository) GetBySlotID(ctx context.Context, slotID int64) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE slot_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("get appointments by slot: %w", err)
	}
	defer rows.Close()

	var apps []*model.Appointment
	for rows.Next() {
		app, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, nil
}

// CountActiveBySlot считает действующие записи на слот
func (r *AppointmentRepository) CountActiveBySlot(ctx context.Context, slotID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM appointments
		WHERE slot_id = $1 AND superseded = FALSE
	`

	var count int
	err := r.pool.QueryRow(ctx, query, slotID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active appointments: %w", err)
	}

	return count, nil
}

// GetActiveBySlotAndRegistrant получает действующую запись участника на слот
func (r *AppointmentRepository) GetActiveBySlotAndRegistrant(ctx context.Context, slotID int64, registrant model.Registrant) (*model.Appointment, error) {
	var query string
	if registrant.IsGroup() {
		query = `SELECT ` + appointmentColumns + ` FROM appointments
			WHERE slot_id = $1 AND group_id = $2 AND superseded = FALSE
			ORDER BY id DESC LIMIT 1`
	} else {
		query = `SELECT ` + appointmentColumns + ` FROM appointments
			WHERE slot_id = $1 AND user_id = $2 AND superseded = FALSE
			ORDER BY id DESC LIMIT 1`
	}

	app, err := scanAppointment(r.pool.QueryRow(ctx, query, slotID, registrant.ID()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by slot and registrant: %w", err)
	}

	return app, nil
}

// GetByOrganizerAndRegistrant получает записи участника во всех слотах
// организатора, новые первыми
func (r *AppointmentRepository) GetByOrganizerAndRegistrant(ctx context.Context, organizerID int64, registrant model.Registrant) ([]*model.Appointment, error) {
	var query string
	if registrant.IsGroup() {
		query = `SELECT a.` + joinColumns() + ` FROM appointments a
			INNER JOIN slots s ON a.slot_id = s.id
			WHERE s.organizer_id = $1 AND a.group_id = $2
			ORDER BY a.id DESC`
	} else {
		query = `SELECT a.` + joinColumns() + ` FROM appointments a
			INNER JOIN slots s ON a.slot_id = s.id
			WHERE s.organizer_id = $1 AND a.user_id = $2
			ORDER BY a.id DESC`
	}

	rows, err := r.pool.Query(ctx, query, organizerID, registrant.ID())
	if err != nil {
		return nil, fmt.Errorf("get appointments by organizer and registrant: %w", err)
	}
	defer rows.Close()

	var apps []*model.Appointment
	for rows.Next() {
		app, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, nil
}

// GetDueForNotification получает записи, для которых наступило время
// напоминания, вместе с их слотами
func (r *AppointmentRepository) GetDueForNotification(ctx context.Context, now time.Time) ([]*model.DueAppointment, error) {
	query := `
		SELECT a.` + joinColumns() + `,
			s.id, s.organizer_id, s.teacher_id, s.start_time, s.duration_seconds, s.location, s.location_link,
			s.max_participants, s.absolute_deadline, s.relative_deadline_seconds, s.notification_seconds, s.notified,
			s.comments, s.event_id, s.created_at
		FROM appointments a
		INNER JOIN slots s ON a.slot_id = s.id
		WHERE s.start_time - s.notification_seconds * interval '1 second' <= $1
		  AND a.notified = FALSE
		  AND a.superseded = FALSE
		ORDER BY a.id
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("get appointments due for notification: %w", err)
	}
	defer rows.Close()

	var due []*model.DueAppointment
	for rows.Next() {
		var app model.Appointment
		var slot model.Slot
		var durationSec, relativeSec, notificationSec int64

		err := rows.Scan(
			&app.ID,
			&app.SlotID,
			&app.UserID,
			&app.GroupID,
			&app.Attended,
			&app.Grade,
			&app.Feedback,
			&app.AllowNewAppointments,
			&app.Superseded,
			&app.Notified,
			&app.EventID,
			&app.CreatedAt,
			&slot.ID,
			&slot.OrganizerID,
			&slot.TeacherID,
			&slot.StartTime,
			&durationSec,
			&slot.Location,
			&slot.LocationLink,
			&slot.MaxParticipants,
			&slot.AbsoluteDeadline,
			&relativeSec,
			&notificationSec,
			&slot.Notified,
			&slot.Comments,
			&slot.EventID,
			&slot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan due appointment: %w", err)
		}

		slot.Duration = time.Duration(durationSec) * time.Second
		slot.RelativeDeadline = time.Duration(relativeSec) * time.Second
		slot.NotificationTime = time.Duration(notificationSec) * time.Second

		due = append(due, &model.DueAppointment{Appointment: &app, Slot: &slot})
	}

	return due, nil
}

// Update обновляет поля оценивания записи
func (r *AppointmentRepository) Update(ctx context.Context, app *model.Appointment) error {
	query := `
		UPDATE appointments
		SET attended = $1, grade = $2, feedback = $3, allow_new_appointments = $4
		WHERE id = $5
	`

	result, err := r.pool.Exec(
		ctx, query,
		app.Attended,
		app.Grade,
		app.Feedback,
		app.AllowNewAppointments,
		app.ID,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

// MarkSuperseded помечает запись как вытесненную повторной записью
func (r *AppointmentRepository) MarkSuperseded(ctx context.Context, id int64) error {
	query := `
		UPDATE appointments
		SET superseded = TRUE
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark appointment superseded: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

// MarkNotified помечает запись как уведомлённую
func (r *AppointmentRepository) MarkNotified(ctx context.Context, id int64) error {
	query := `
		UPDATE appointments
		SET notified = TRUE
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark appointment notified: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

// Delete удаляет запись
func (r *AppointmentRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM appointments
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

// joinColumns возвращает столбцы записи с префиксом "a." для join-запросов
func joinColumns() string {
	return `id, a.slot_id, a.user_id, a.group_id, a.attended, a.grade, a.feedback,
		a.allow_new_appointments, a.superseded, a.notified, a.event_id, a.created_at`
}
