package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/organizer/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DirectoryRepository — адаптер внешнего справочника участников поверх
// таблиц платформы: пользователи, группы, зачисления на курс
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

func NewDirectoryRepository(pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

// UserName возвращает отображаемое имя пользователя
func (r *DirectoryRepository) UserName(ctx context.Context, userID int64) (string, error) {
	query := `
		SELECT name
		FROM users
		WHERE id = $1
	`

	var name string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", fmt.Errorf("user not found")
		}
		return "", fmt.Errorf("get user name: %w", err)
	}

	return name, nil
}

// GroupName возвращает название группы
func (r *DirectoryRepository) GroupName(ctx context.Context, groupID int64) (string, error) {
	query := `
		SELECT name
		FROM groups
		WHERE id = $1
	`

	var name string
	err := r.pool.QueryRow(ctx, query, groupID).Scan(&name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", fmt.Errorf("group not found")
		}
		return "", fmt.Errorf("get group name: %w", err)
	}

	return name, nil
}

// GroupOf возвращает группу пользователя в курсе
func (r *DirectoryRepository) GroupOf(ctx context.Context, courseID, userID int64) (*model.Group, error) {
	query := `
		SELECT g.id, g.name
		FROM groups g
		INNER JOIN group_members gm ON gm.group_id = g.id
		WHERE g.course_id = $1 AND gm.user_id = $2
		ORDER BY g.id
		LIMIT 1
	`

	var group model.Group
	err := r.pool.QueryRow(ctx, query, courseID, userID).Scan(&group.ID, &group.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user group: %w", err)
	}

	return &group, nil
}

// GroupsInGrouping возвращает группы объединения
func (r *DirectoryRepository) GroupsInGrouping(ctx context.Context, groupingID int64) ([]model.Group, error) {
	query := `
		SELECT g.id, g.name
		FROM groups g
		INNER JOIN grouping_groups gg ON gg.group_id = g.id
		WHERE gg.grouping_id = $1
		ORDER BY g.name
	`

	rows, err := r.pool.Query(ctx, query, groupingID)
	if err != nil {
		return nil, fmt.Errorf("get grouping groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var group model.Group
		if err := rows.Scan(&group.ID, &group.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, nil
}

// Students возвращает пользователей, зачисленных на курс студентами
func (r *DirectoryRepository) Students(ctx context.Context, courseID int64) ([]int64, error) {
	query := `
		SELECT user_id
		FROM enrollments
		WHERE course_id = $1 AND role = 'student'
		ORDER BY user_id
	`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course students: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		userIDs = append(userIDs, userID)
	}

	return userIDs, nil
}

// IsStudent проверяет, зачислен ли пользователь на курс студентом
func (r *DirectoryRepository) IsStudent(ctx context.Context, courseID, userID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM enrollments
			WHERE course_id = $1 AND user_id = $2 AND role = 'student'
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, courseID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check student role: %w", err)
	}

	return exists, nil
}
