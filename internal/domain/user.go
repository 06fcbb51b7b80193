package domain

import "time"

type User struct {
	ID          string
	TelegramID  int64
	Username    string
	PhoneNumber string
	Credits     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
