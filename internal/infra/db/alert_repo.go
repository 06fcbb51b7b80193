package db

import (
	"context"
	"errors"

	"github.com/forexring/ringalerts/internal/domain"
	"gorm.io/gorm"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	model := mapAlertToModel(*alert)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	alert.ID = model.ID
	alert.CreatedAt = model.CreatedAt
	alert.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	var model alertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	alert := mapAlertToDomain(model)
	return &alert, nil
}

func (r *AlertRepository) ListActive(ctx context.Context) ([]domain.Alert, error) {
	var models []alertModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	alerts := make([]domain.Alert, 0, len(models))
	for _, model := range models {
		alerts = append(alerts, mapAlertToDomain(model))
	}
	return alerts, nil
}

func (r *AlertRepository) GetAlertState(ctx context.Context, id string) (domain.AlertState, error) {
	var model alertModel
	err := r.db.WithContext(ctx).Select("active", "direction").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AlertState{}, domain.ErrNotFound
		}
		return domain.AlertState{}, err
	}
	return domain.AlertState{
		Active:    model.Active,
		Direction: domain.Direction(model.Direction),
	}, nil
}

func (r *AlertRepository) SetDirection(ctx context.Context, id string, direction domain.Direction) error {
	result := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("id = ?", id).
		Update("direction", string(direction))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConditionalDeactivate closes the alert only if it is still open. The
// rows-affected count is the trigger-ownership signal: 1 means this call
// won the race, 0 means another evaluation path already closed it.
func (r *AlertRepository) ConditionalDeactivate(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *AlertRepository) RecordOutcome(ctx context.Context, id string, outcome domain.AlertOutcome) error {
	updates := map[string]interface{}{
		"active":              false,
		"notification_sent":   outcome.NotificationSent,
		"retry_count":         outcome.RetryCount,
		"last_failure_reason": outcome.LastFailureReason,
	}
	result := r.db.WithContext(ctx).Model(&alertModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapAlertToDomain(model alertModel) domain.Alert {
	return domain.Alert{
		ID:                model.ID,
		UserID:            model.UserID,
		Pair:              model.Pair,
		TargetPrice:       model.TargetPrice,
		Direction:         domain.Direction(model.Direction),
		Active:            model.Active,
		RetryCount:        model.RetryCount,
		NotificationSent:  model.NotificationSent,
		LastFailureReason: model.LastFailureReason,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

func mapAlertToModel(alert domain.Alert) alertModel {
	return alertModel{
		ID:                alert.ID,
		UserID:            alert.UserID,
		Pair:              alert.Pair,
		TargetPrice:       alert.TargetPrice,
		Direction:         string(alert.Direction),
		Active:            alert.Active,
		RetryCount:        alert.RetryCount,
		NotificationSent:  alert.NotificationSent,
		LastFailureReason: alert.LastFailureReason,
	}
}
