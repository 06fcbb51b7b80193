package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/forexring/ringalerts/internal/domain"
	"github.com/forexring/ringalerts/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// subscriptionRemover is the slice of the registry a watcher needs.
type subscriptionRemover interface {
	RemoveAlertForPair(pair string, alertID string)
}

// Watcher evaluates one alert against incoming ticks. It keeps almost no
// local state: active/direction are re-read from the store before every
// evaluation, and the store's conditional deactivation is the only thing
// that decides trigger ownership. The returned bool is the feed's
// "remove me" signal.
type Watcher struct {
	alert      domain.Alert
	alerts     domain.AlertRepository
	users      domain.UserRepository
	dispatcher *Dispatcher
	registry   subscriptionRemover
	guard      *gocache.Cache
	logger     *zap.Logger
}

func NewWatcher(
	alert domain.Alert,
	alerts domain.AlertRepository,
	users domain.UserRepository,
	dispatcher *Dispatcher,
	registry subscriptionRemover,
	guard *gocache.Cache,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		alert:      alert,
		alerts:     alerts,
		users:      users,
		dispatcher: dispatcher,
		registry:   registry,
		guard:      guard,
		logger:     logger,
	}
}

func (w *Watcher) OnTick(ctx context.Context, tick domain.PriceTick) bool {
	// Cheap shortcut for a tick re-delivered before the unsubscribe
	// propagates. Correctness does not depend on it; the conditional
	// update below is the real guarantee.
	if _, hit := w.guard.Get(w.alert.ID); hit {
		return true
	}

	state, err := w.alerts.GetAlertState(ctx, w.alert.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			w.logger.Warn("alert state read failed, treating as inactive",
				zap.String("alert_id", w.alert.ID), zap.Error(err))
		}
		return true
	}
	if !state.Active {
		return true
	}

	// First fresh tick with no stored direction arms the alert to fire
	// on the opposite side of where price currently sits. The arming
	// tick itself never evaluates a crossing.
	if state.Direction == domain.DirectionUnset {
		direction := domain.DirectionBelow
		if tick.Mid.LessThan(w.alert.TargetPrice) {
			direction = domain.DirectionAbove
		}
		if err := w.alerts.SetDirection(ctx, w.alert.ID, direction); err != nil {
			w.logger.Warn("failed to persist direction",
				zap.String("alert_id", w.alert.ID), zap.Error(err))
			return false
		}
		w.logger.Info("alert armed",
			zap.String("alert_id", w.alert.ID),
			zap.String("pair", w.alert.Pair),
			zap.String("direction", string(direction)),
			zap.String("mid", tick.Mid.String()))
		return false
	}

	triggered := (state.Direction == domain.DirectionAbove && tick.Mid.GreaterThan(w.alert.TargetPrice)) ||
		(state.Direction == domain.DirectionBelow && tick.Mid.LessThan(w.alert.TargetPrice))
	if !triggered {
		return false
	}

	rows, err := w.alerts.ConditionalDeactivate(ctx, w.alert.ID)
	if err != nil {
		w.logger.Error("conditional deactivate failed",
			zap.String("alert_id", w.alert.ID), zap.Error(err))
		return false
	}
	if rows == 0 {
		// Another evaluation path already owns this trigger.
		return true
	}

	metrics.AlertsTriggered.Inc()
	w.guard.SetDefault(w.alert.ID, true)
	w.registry.RemoveAlertForPair(w.alert.Pair, w.alert.ID)

	w.logger.Info("alert triggered",
		zap.String("alert_id", w.alert.ID),
		zap.String("pair", w.alert.Pair),
		zap.String("direction", string(state.Direction)),
		zap.String("mid", tick.Mid.String()),
		zap.String("target", w.alert.TargetPrice.String()))

	outcome := w.notify(ctx, state.Direction)
	if err := w.alerts.RecordOutcome(ctx, w.alert.ID, outcome); err != nil {
		w.logger.Error("failed to record alert outcome",
			zap.String("alert_id", w.alert.ID), zap.Error(err))
	}
	return true
}

func (w *Watcher) notify(ctx context.Context, direction domain.Direction) domain.AlertOutcome {
	user, err := w.users.GetByID(ctx, w.alert.UserID)
	if err != nil {
		reason := fmt.Sprintf("recipient lookup failed: %v", err)
		w.logger.Error("cannot resolve alert recipient",
			zap.String("alert_id", w.alert.ID), zap.String("user_id", w.alert.UserID), zap.Error(err))
		return domain.AlertOutcome{LastFailureReason: &reason}
	}

	message := fmt.Sprintf("Forex alert: %s is now %s %s.",
		w.alert.Pair, direction, w.alert.TargetPrice.String())

	result := w.dispatcher.Dispatch(ctx, DispatchRequest{
		AlertID:     w.alert.ID,
		Tier:        user.Tier(),
		PhoneNumber: user.PhoneNumber,
		ChatID:      user.TelegramID,
		Message:     message,
	})

	outcome := domain.AlertOutcome{
		NotificationSent: result.Delivered,
		RetryCount:       result.Attempts,
	}
	if !result.Delivered && result.FailureReason != "" {
		reason := result.FailureReason
		outcome.LastFailureReason = &reason
	}
	return outcome
}
