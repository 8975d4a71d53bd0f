package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrganizerRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizerRepository(pool *pgxpool.Pool) *OrganizerRepository {
	return &OrganizerRepository{pool: pool}
}

// Create создаёт новый организатор
func (r *OrganizerRepository) Create(ctx context.Context, org *model.Organizer) error {
	query := `
		INSERT INTO organizers (course_id, name, is_group_organizer, grouping_id, enable_from, enable_until, grade, time_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.pool.QueryRow(
		ctx, query,
		org.CourseID,
		org.Name,
		org.IsGroupOrganizer,
		org.GroupingID,
		org.EnableFrom,
		org.EnableUntil,
		org.Grade,
		org.TimeModified,
	).Scan(&org.ID)

	if err != nil {
		return fmt.Errorf("create organizer: %w", err)
	}

	return nil
}

// GetByID получает организатор по ID
func (r *OrganizerRepository) GetByID(ctx context.Context, id int64) (*model.Organizer, error) {
	query := `
		SELECT id, course_id, name, is_group_organizer, grouping_id, enable_from, enable_until, grade, time_modified
		FROM organizers
		WHERE id = $1
	`

	var org model.Organizer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.CourseID,
		&org.Name,
		&org.IsGroupOrganizer,
		&org.GroupingID,
		&org.EnableFrom,
		&org.EnableUntil,
		&org.Grade,
		&org.TimeModified,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get organizer by id: %w", err)
	}

	return &org, nil
}

// Update обновляет организатор
func (r *OrganizerRepository) Update(ctx context.Context, org *model.Organizer) error {
	query := `
		UPDATE organizers
		SET name = $1, is_group_organizer = $2, grouping_id = $3, enable_from = $4, enable_until = $5, grade = $6, time_modified = $7
		WHERE id = $8
	`

	result, err := r.pool.Exec(
		ctx, query,
		org.Name,
		org.IsGroupOrganizer,
		org.GroupingID,
		org.EnableFrom,
		org.EnableUntil,
		org.Grade,
		org.TimeModified,
		org.ID,
	)
	if err != nil {
		return fmt.Errorf("update organizer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("organizer not found")
	}

	return nil
}

// Delete удаляет организатор
func (r *OrganizerRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM organizers
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete organizer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("organizer not found")
	}

	return nil
}
