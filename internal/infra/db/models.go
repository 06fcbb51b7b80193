package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type userModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	TelegramID  int64  `gorm:"uniqueIndex;not null"`
	Username    string
	PhoneNumber string
	Credits     int `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (m *userModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type alertModel struct {
	ID                string          `gorm:"type:uuid;primaryKey"`
	UserID            string          `gorm:"type:uuid;index;not null"`
	Pair              string          `gorm:"index:idx_alerts_pair_active,priority:1;not null"`
	TargetPrice       decimal.Decimal `gorm:"type:numeric(18,8);not null"`
	Direction         string
	Active            bool `gorm:"index:idx_alerts_pair_active,priority:2"`
	RetryCount        int  `gorm:"not null;default:0"`
	NotificationSent  bool `gorm:"not null;default:false"`
	LastFailureReason *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (m *alertModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
