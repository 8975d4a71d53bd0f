package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScaleRepository struct {
	pool *pgxpool.Pool
}

func NewScaleRepository(pool *pgxpool.Pool) *ScaleRepository {
	return &ScaleRepository{pool: pool}
}

// GetByID получает шкалу оценивания по ID
func (r *ScaleRepository) GetByID(ctx context.Context, id int64) (*model.Scale, error) {
	query := `
		SELECT id, name, items
		FROM scales
		WHERE id = $1
	`

	var scale model.Scale
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&scale.ID,
		&scale.Name,
		&scale.Items,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get scale by id: %w", err)
	}

	return &scale, nil
}
