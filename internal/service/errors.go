package service

import "errors"

// Ошибки валидации, которые слой представления переводит в сообщения
// пользователю. Отклонённый вызов не оставляет частичного состояния.
var (
	ErrDeadlinePassed    = errors.New("registration deadline has passed")
	ErrSlotFull          = errors.New("slot is full")
	ErrAlreadyRegistered = errors.New("registrant already has an active appointment")
	ErrNotRegistered     = errors.New("registrant has no active appointment for this slot")
	ErrScaleNotFound     = errors.New("grading scale not found")
)
