package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SchedulerStateRepository хранит служебное состояние планировщика.
// Дата последнего дайджеста персистится, чтобы перезапуск процесса не
// приводил к повторной или пропущенной рассылке.
type SchedulerStateRepository struct {
	pool *pgxpool.Pool
}

func NewSchedulerStateRepository(pool *pgxpool.Pool) *SchedulerStateRepository {
	return &SchedulerStateRepository{pool: pool}
}

// LastDigestDate возвращает дату последней рассылки дайджеста,
// нулевое время - если дайджест ещё не рассылался
func (r *SchedulerStateRepository) LastDigestDate(ctx context.Context) (time.Time, error) {
	query := `
		SELECT last_digest_date
		FROM scheduler_state
		WHERE id = 1
	`

	var date *time.Time
	err := r.pool.QueryRow(ctx, query).Scan(&date)
	if err != nil {
		if err == pgx.ErrNoRows {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("get last digest date: %w", err)
	}

	if date == nil {
		return time.Time{}, nil
	}

	return *date, nil
}

// SetLastDigestDate запоминает дату последней рассылки дайджеста
func (r *SchedulerStateRepository) SetLastDigestDate(ctx context.Context, date time.Time) error {
	query := `
		INSERT INTO scheduler_state (id, last_digest_date)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_digest_date = EXCLUDED.last_digest_date
	`

	_, err := r.pool.Exec(ctx, query, date)
	if err != nil {
		return fmt.Errorf("set last digest date: %w", err)
	}

	return nil
}
