package usecase

import (
	"context"
	"time"

	"github.com/forexring/ringalerts/internal/domain"
	"go.uber.org/zap"
)

// Poller is the fallback evaluation path: a periodic sweep over active
// alerts using REST last quotes. It catches alerts whose stream
// subscription was lost and keeps the conditional deactivation honest
// by racing the stream path for real.
type Poller struct {
	alerts   domain.AlertRepository
	quotes   domain.QuoteSource
	service  *Service
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(alerts domain.AlertRepository, quotes domain.QuoteSource, service *Service, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		alerts:   alerts,
		quotes:   quotes,
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poll sweep stopped")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	alerts, err := p.alerts.ListActive(ctx)
	if err != nil {
		p.logger.Warn("poll sweep: listing active alerts failed", zap.Error(err))
		return
	}
	if len(alerts) == 0 {
		return
	}

	// One quote per pair per sweep.
	ticks := make(map[string]*domain.PriceTick)
	for _, alert := range alerts {
		tick, ok := ticks[alert.Pair]
		if !ok {
			var err error
			tick, err = p.quotes.LastQuote(ctx, alert.Pair)
			if err != nil {
				p.logger.Warn("poll sweep: quote fetch failed",
					zap.String("pair", alert.Pair), zap.Error(err))
				ticks[alert.Pair] = nil
				continue
			}
			ticks[alert.Pair] = tick
		}
		if tick == nil {
			continue
		}
		p.service.EvaluateTick(ctx, alert, *tick)
	}
}
