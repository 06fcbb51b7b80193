package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forexring/ringalerts/internal/domain"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Service is the engine's entry surface for the owning process: it scans
// active alerts into live subscriptions at startup and registers or
// removes alerts as the (external) command layer mutates them.
type Service struct {
	alerts     domain.AlertRepository
	users      domain.UserRepository
	registry   *Registry
	dispatcher *Dispatcher
	guard      *gocache.Cache
	logger     *zap.Logger
}

func NewService(
	alerts domain.AlertRepository,
	users domain.UserRepository,
	registry *Registry,
	dispatcher *Dispatcher,
	guardTTL time.Duration,
	logger *zap.Logger,
) *Service {
	if guardTTL <= 0 {
		guardTTL = time.Minute
	}
	return &Service{
		alerts:     alerts,
		users:      users,
		registry:   registry,
		dispatcher: dispatcher,
		guard:      gocache.New(guardTTL, 2*guardTTL),
		logger:     logger,
	}
}

// Start wipes any stale bookkeeping and subscribes a watcher for every
// active alert in the store.
func (s *Service) Start(ctx context.Context) error {
	s.registry.ClearAll()

	alerts, err := s.alerts.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("scan active alerts: %w", err)
	}

	registered := 0
	for _, alert := range alerts {
		if err := s.register(alert); err != nil {
			s.logger.Warn("failed to subscribe alert",
				zap.String("alert_id", alert.ID), zap.String("pair", alert.Pair), zap.Error(err))
			continue
		}
		registered++
	}
	s.logger.Info("alerting started", zap.Int("alerts", registered))
	return nil
}

// RegisterAlert wires a freshly created alert into the live feed.
func (s *Service) RegisterAlert(ctx context.Context, alertID string) error {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return err
	}
	if !alert.Active {
		return fmt.Errorf("alert %s is not active", alertID)
	}
	if !domain.IsSupportedPair(alert.Pair) {
		return fmt.Errorf("unsupported pair %q", alert.Pair)
	}
	return s.register(*alert)
}

// RemoveAlert drops an alert's subscription (cancellation or edit).
// Immediate for future ticks; an evaluation already past the trigger
// decision point finishes regardless.
func (s *Service) RemoveAlert(pair string, alertID string) {
	s.registry.RemoveAlertForPair(strings.ToUpper(pair), alertID)
}

func (s *Service) Stop() {
	s.registry.ClearAll()
	s.logger.Info("alerting stopped")
}

// EvaluateTick runs one alert through the same trigger logic the stream
// path uses. The fallback poller calls this; races between the two
// paths are settled by the store's conditional update alone.
func (s *Service) EvaluateTick(ctx context.Context, alert domain.Alert, tick domain.PriceTick) bool {
	return s.newWatcher(alert).OnTick(ctx, tick)
}

func (s *Service) register(alert domain.Alert) error {
	watcher := s.newWatcher(alert)
	return s.registry.AddAlertForPair(alert.Pair, watcher.OnTick, alert.ID)
}

func (s *Service) newWatcher(alert domain.Alert) *Watcher {
	return NewWatcher(alert, s.alerts, s.users, s.dispatcher, s.registry, s.guard, s.logger)
}
