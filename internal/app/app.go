package app

import (
	"context"
	"net/http"
	"time"

	"github.com/forexring/ringalerts/internal/config"
	"github.com/forexring/ringalerts/internal/delivery/telegram"
	"github.com/forexring/ringalerts/internal/infra/db"
	"github.com/forexring/ringalerts/internal/infra/log"
	"github.com/forexring/ringalerts/internal/infra/polygon"
	"github.com/forexring/ringalerts/internal/infra/twilio"
	"github.com/forexring/ringalerts/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type App struct {
	feed       *polygon.Feed
	service    *usecase.Service
	poller     *usecase.Poller
	metricsSrv *http.Server
	logger     *zap.Logger
	cleanupFn  func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	alertRepo := db.NewAlertRepository(dbConn)
	userRepo := db.NewUserRepository(dbConn)

	feed := polygon.NewFeed(polygon.Options{
		URL:            cfg.PolygonWSURL,
		APIKey:         cfg.PolygonAPIKey,
		ReconnectDelay: cfg.FeedReconnectDelay,
		LogInterval:    cfg.PriceLogInterval,
	}, nil, logger)
	quotes := polygon.NewRESTClient(cfg.PolygonRESTBaseURL, cfg.PolygonAPIKey, cfg.PolygonRESTTimeout, logger)

	api, err := telegram.NewAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}
	textChannel := telegram.NewNotifier(api, logger)
	voiceChannel := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, logger)

	dispatcher := usecase.NewDispatcher(voiceChannel, textChannel, cfg.NotifyRetryBudget, cfg.NotifyRatePerSecond, logger)
	registry := usecase.NewRegistry(feed, logger)
	service := usecase.NewService(alertRepo, userRepo, registry, dispatcher, cfg.TriggerGuardTTL, logger)
	poller := usecase.NewPoller(alertRepo, quotes, service, cfg.PollInterval, logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	cleanup := func() error {
		sqlDB, err := dbConn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return &App{
		feed:       feed,
		service:    service,
		poller:     poller,
		metricsSrv: metricsSrv,
		logger:     logger,
		cleanupFn:  cleanup,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("ringalerts service starting")
	if err := a.service.Start(ctx); err != nil {
		return err
	}

	go a.poller.Run(ctx)
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	a.logger.Info("ringalerts service started")
	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("ringalerts service shutting down")
	a.service.Stop()
	a.feed.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metricsSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("failed to stop metrics server", zap.Error(err))
	}

	if a.cleanupFn != nil {
		if err := a.cleanupFn(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
