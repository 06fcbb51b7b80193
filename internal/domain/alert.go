package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of the target price an alert fires on. It starts
// unset and is armed exactly once, from the first fresh tick observed
// after the watcher is registered.
type Direction string

const (
	DirectionUnset Direction = ""
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

type Alert struct {
	ID                string
	UserID            string
	Pair              string
	TargetPrice       decimal.Decimal
	Direction         Direction
	Active            bool
	RetryCount        int
	NotificationSent  bool
	LastFailureReason *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
