package notify

import "context"

// TemplateKey — ключ текстового шаблона уведомления. Ключи совпадают с
// именами языковых ресурсов, по которым транспорт находит тексты.
type TemplateKey string

const (
	RegisterNotifyTeacher        TemplateKey = "register_notify:teacher:register"
	RegisterNotifyTeacherGroup   TemplateKey = "register_notify:teacher:register:group"
	ReregisterNotifyTeacher      TemplateKey = "register_notify:teacher:reregister"
	ReregisterNotifyTeacherGroup TemplateKey = "register_notify:teacher:reregister:group"
	UnregisterNotifyTeacher      TemplateKey = "register_notify:teacher:unregister"
	UnregisterNotifyTeacherGroup TemplateKey = "register_notify:teacher:unregister:group"

	AppointmentReminderStudent TemplateKey = "appointment_reminder:student"
	AppointmentReminderGroup   TemplateKey = "appointment_reminder:student:group"
	AppointmentReminderDigest  TemplateKey = "appointment_reminder:teacher:digest"

	EvalNotifyStudent      TemplateKey = "eval_notify:student"
	EvalNotifyStudentGroup TemplateKey = "eval_notify:student:group"
)

// Fields — подстановочные поля шаблона
type Fields struct {
	RecipientName string `json:"recipient_name,omitempty"`
	SenderName    string `json:"sender_name,omitempty"`
	CourseID      int64  `json:"course_id,omitempty"`
	CourseName    string `json:"course_name,omitempty"`
	OrganizerName string `json:"organizer_name,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
	Location      string `json:"location,omitempty"`
	GroupName     string `json:"group_name,omitempty"`
	Digest        string `json:"digest,omitempty"`
}

// Message — одно уведомление, готовое к доставке
type Message struct {
	Template    TemplateKey `json:"template"`
	RecipientID int64       `json:"recipient_id"`
	SenderID    int64       `json:"sender_id"`
	Fields      Fields      `json:"fields"`
}

// Sink доставляет уведомление получателю. Реализация сама решает, каким
// транспортом: телеграм, очередь, почта. Ошибка означает, что доставка
// не состоялась и отправитель может повторить попытку.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}
