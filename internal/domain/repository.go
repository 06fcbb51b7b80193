package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// AlertState is the persisted subset a watcher re-reads before every
// evaluation. The store, not the in-memory copy, is authoritative.
type AlertState struct {
	Active    bool
	Direction Direction
}

// AlertOutcome is the terminal state written after a trigger. Active is
// always false by then; the row is soft-closed, never deleted.
type AlertOutcome struct {
	NotificationSent  bool
	RetryCount        int
	LastFailureReason *string
}

type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error
	GetByID(ctx context.Context, id string) (*Alert, error)
	ListActive(ctx context.Context) ([]Alert, error)
	GetAlertState(ctx context.Context, id string) (AlertState, error)
	SetDirection(ctx context.Context, id string, direction Direction) error

	// ConditionalDeactivate flips active to false only if it is still
	// true, reporting the number of rows affected. This is the sole
	// mutual-exclusion mechanism between concurrent evaluation paths.
	ConditionalDeactivate(ctx context.Context, id string) (int64, error)

	RecordOutcome(ctx context.Context, id string, outcome AlertOutcome) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	Create(ctx context.Context, user *User) error
}
