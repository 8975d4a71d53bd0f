package calendar

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresService хранит события календаря в таблице calendar_events
type PostgresService struct {
	pool *pgxpool.Pool
}

func NewPostgresService(pool *pgxpool.Pool) *PostgresService {
	return &PostgresService{pool: pool}
}

// CreateEvent создаёт событие календаря
func (s *PostgresService) CreateEvent(ctx context.Context, event Event) error {
	query := `
		INSERT INTO calendar_events (id, owner_id, title, start_time, end_time, location)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(
		ctx, query,
		event.ID,
		event.OwnerID,
		event.Title,
		event.StartTime,
		event.EndTime,
		event.Location,
	)
	if err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}

	return nil
}

// DeleteEvent удаляет событие календаря
func (s *PostgresService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM calendar_events
		WHERE id = $1
	`

	_, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}

	return nil
}
