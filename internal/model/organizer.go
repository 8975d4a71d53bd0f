package model

import (
	"strings"
	"time"
)

// Organizer — кампания записи на встречи в рамках курса.
// Grade > 0 — числовая шкала с максимумом Grade, Grade < 0 — ссылка на
// внешнюю шкалу с id = -Grade, Grade == 0 — без оценивания.
type Organizer struct {
	ID               int64      `json:"id"`
	CourseID         int64      `json:"course_id"`
	Name             string     `json:"name"`
	IsGroupOrganizer bool       `json:"is_group_organizer"`
	GroupingID       int64      `json:"grouping_id"`
	EnableFrom       *time.Time `json:"enable_from"`  // указатель - окно может быть не задано
	EnableUntil      *time.Time `json:"enable_until"` // указатель - окно может быть не задано
	Grade            int        `json:"grade"`
	TimeModified     time.Time  `json:"time_modified"`
}

// Expired сообщает, закончилось ли окно доступности организатора
func (o *Organizer) Expired(now time.Time) bool {
	return o.EnableUntil != nil && o.EnableUntil.Before(now)
}

// Group — группа участников курса (разрешается внешним справочником)
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Scale — внешняя шкала оценивания, Items хранит метки через запятую
type Scale struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Items string `json:"items"`
}

// Labels возвращает метки шкалы по порядку (индексация оценок с единицы)
func (s *Scale) Labels() []string {
	parts := strings.Split(s.Items, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		labels = append(labels, strings.TrimSpace(p))
	}
	return labels
}
