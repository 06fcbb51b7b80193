package usecase

import (
	"context"
	"fmt"

	"github.com/forexring/ringalerts/internal/domain"
	"github.com/forexring/ringalerts/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type DispatchRequest struct {
	AlertID     string
	Tier        domain.DeliveryTier
	PhoneNumber string
	ChatID      int64
	Message     string
}

// DispatchResult is the dispatcher's tri-state outcome: delivered, or a
// human-readable failure reason callers persist verbatim. Nothing ever
// panics or errors across this boundary.
type DispatchResult struct {
	Delivered     bool
	Attempts      int
	FailureReason string
}

// Dispatcher drives bounded, best-effort delivery. Premium alerts get a
// voice call with a text fallback inside the same attempt; basic alerts
// get text only. Exhausting the budget is reported, never escalated —
// the caller closes the alert either way.
type Dispatcher struct {
	voice   domain.VoiceChannel
	text    domain.TextChannel
	limiter *rate.Limiter
	budget  int
	logger  *zap.Logger
}

func NewDispatcher(voice domain.VoiceChannel, text domain.TextChannel, budget int, perSecond float64, logger *zap.Logger) *Dispatcher {
	if budget <= 0 {
		budget = 3
	}
	if perSecond <= 0 {
		perSecond = 5
	}
	return &Dispatcher{
		voice:   voice,
		text:    text,
		limiter: rate.NewLimiter(rate.Limit(perSecond), budget),
		budget:  budget,
		logger:  logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (result DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch panicked", zap.String("alert_id", req.AlertID), zap.Any("panic", r))
			result = DispatchResult{
				Attempts:      result.Attempts,
				FailureReason: fmt.Sprintf("dispatch panic: %v", r),
			}
		}
	}()

	var lastReason string
	for attempt := 1; attempt <= d.budget; attempt++ {
		result.Attempts = attempt
		if err := d.limiter.Wait(ctx); err != nil {
			lastReason = fmt.Sprintf("rate limit wait: %v", err)
			break
		}
		if d.attempt(ctx, req, attempt, &lastReason) {
			result.Delivered = true
			return result
		}
	}

	if lastReason == "" {
		lastReason = "notification delivery failed"
	}
	result.FailureReason = lastReason
	d.logger.Error("notification budget exhausted",
		zap.String("alert_id", req.AlertID),
		zap.Int("attempts", result.Attempts),
		zap.String("reason", lastReason))
	return result
}

func (d *Dispatcher) attempt(ctx context.Context, req DispatchRequest, attempt int, lastReason *string) bool {
	if req.Tier == domain.TierPremium {
		err := d.voice.Call(ctx, req.PhoneNumber, req.Message)
		if err == nil {
			metrics.NotificationAttempts.WithLabelValues("voice", "ok").Inc()
			return true
		}
		metrics.NotificationAttempts.WithLabelValues("voice", "error").Inc()
		*lastReason = fmt.Sprintf("voice: %v", err)
		d.logger.Warn("voice call failed, falling back to text",
			zap.String("alert_id", req.AlertID), zap.Int("attempt", attempt), zap.Error(err))
	}

	err := d.text.Send(ctx, req.ChatID, req.Message)
	if err == nil {
		metrics.NotificationAttempts.WithLabelValues("text", "ok").Inc()
		return true
	}
	metrics.NotificationAttempts.WithLabelValues("text", "error").Inc()
	if req.Tier == domain.TierPremium {
		*lastReason = fmt.Sprintf("%s; text: %v", *lastReason, err)
	} else {
		*lastReason = fmt.Sprintf("text: %v", err)
	}
	d.logger.Warn("text send failed",
		zap.String("alert_id", req.AlertID), zap.Int("attempt", attempt), zap.Error(err))
	return false
}
