package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event — событие календаря, привязанное к слоту или записи
type Event struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Location  string    `json:"location"`
}

// Service ведёт события календаря. Ядро только создаёт и удаляет события,
// отображением занимается внешний календарь.
type Service interface {
	CreateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}
