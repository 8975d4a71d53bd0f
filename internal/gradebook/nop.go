package gradebook

import "context"

// NopSink отбрасывает обновления оценок. Используется, когда брокер
// не настроен.
type NopSink struct{}

func (NopSink) Push(ctx context.Context, organizerID, userID int64, grade *float64) error {
	return nil
}
