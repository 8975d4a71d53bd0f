package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Длительности хранятся в секундах (bigint), чтобы не зависеть от
// interval-типов при сканировании.
const slotColumns = `id, organizer_id, teacher_id, start_time, duration_seconds, location, location_link,
		max_participants, absolute_deadline, relative_deadline_seconds, notification_seconds, notified,
		comments, event_id, created_at`

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*model.Slot, error) {
	var slot model.Slot
	var durationSec, relativeSec, notificationSec int64

	err := row.Scan(
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
		return nil, err
	}

	slot.Duration = time.Duration(durationSec) * time.Second
	slot.RelativeDeadline = time.Duration(relativeSec) * time.Second
	slot.NotificationTime = time.Duration(notificationSec) * time.Second

	return &slot, nil
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (organizer_id, teacher_id, start_time, duration_seconds, location, location_link,
			max_participants, absolute_deadline, relative_deadline_seconds, notification_seconds, notified, comments, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.OrganizerID,
		slot.TeacherID,
		slot.StartTime,
		int64(slot.Duration/time.Second),
		slot.Location,
		slot.LocationLink,
		slot.MaxParticipants,
		slot.AbsoluteDeadline,
		int64(slot.RelativeDeadline/time.Second),
		int64(slot.NotificationTime/time.Second),
		slot.Notified,
		slot.Comments,
		slot.EventID,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByOrganizerID получает все слоты организатора
func (r *SlotRepository) GetByOrganizerID(ctx context.Context, organizerID int64) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE organizer_id = $1 ORDER BY start_time`

	rows, err := r.pool.Query(ctx, query, organizerID)
	if err != nil {
		return nil, fmt.Errorf("get slots by organizer: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// GetUpcomingByTeacher получает будущие слоты преподавателя в организаторе
func (r *SlotRepository) GetUpcomingByTeacher(ctx context.Context, organizerID, teacherID int64, after time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE organizer_id = $1
		  AND teacher_id = $2
		  AND start_time > $3
		ORDER BY start_time
	`

	rows, err := r.pool.Query(ctx, query, organizerID, teacherID, after)
	if err != nil {
		return nil, fmt.Errorf("get upcoming slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// GetDueForDigest получает неуведомлённые слоты, начинающиеся в окне [from, to)
func (r *SlotRepository) GetDueForDigest(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE start_time >= $1
		  AND start_time < $2
		  AND notified = FALSE
		ORDER BY teacher_id, start_time
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get slots due for digest: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// MarkNotified помечает слот как уведомлённый
func (r *SlotRepository) MarkNotified(ctx context.Context, slotID int64) error {
	query := `
		UPDATE slots
		SET notified = TRUE
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, slotID)
	if err != nil {
		return fmt.Errorf("mark slot notified: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}

// Update обновляет редактируемые поля слота
func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET start_time = $1, duration_seconds = $2, location = $3, location_link = $4, max_participants = $5,
			absolute_deadline = $6, relative_deadline_seconds = $7, notification_seconds = $8, comments = $9
		WHERE id = $10
	`

	result, err := r.pool.Exec(
		ctx, query,
		slot.StartTime,
		int64(slot.Duration/time.Second),
		slot.Location,
		slot.LocationLink,
		slot.MaxParticipants,
		slot.AbsoluteDeadline,
		int64(slot.RelativeDeadline/time.Second),
		int64(slot.NotificationTime/time.Second),
		slot.Comments,
		slot.ID,
	)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}

// Delete удаляет слот
func (r *SlotRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM slots
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}
