package models

import "time"

// Appointment - встреча, запланированная пользователем.
// Date хранится как "YYYY-MM-DD", Time как "HH:MM"; пустые значения допустимы
// и означают, что напоминание по встрече отправить нельзя.
type Appointment struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Location     string    `json:"location"`
	Category     string    `json:"category"`
	ReminderSent bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
