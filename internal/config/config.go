package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DBHost            string        `env:"DB_HOST,required"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER,required"`
	DBPassword        string        `env:"DB_PASSWORD,required"`
	DBName            string        `env:"DB_NAME,required"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	PolygonAPIKey      string        `env:"POLYGON_API_KEY"`
	PolygonWSURL       string        `env:"POLYGON_WS_URL,default=wss://socket.polygon.io/forex"`
	PolygonRESTBaseURL string        `env:"POLYGON_REST_BASE_URL,default=https://api.polygon.io/v1"`
	PolygonRESTTimeout time.Duration `env:"POLYGON_REST_TIMEOUT,default=10s"`

	FeedReconnectDelay  time.Duration `env:"FEED_RECONNECT_DELAY,default=3s"`
	PriceLogInterval    time.Duration `env:"PRICE_LOG_INTERVAL,default=5s"`
	PollInterval        time.Duration `env:"POLL_INTERVAL,default=60s"`
	TriggerGuardTTL     time.Duration `env:"TRIGGER_GUARD_TTL,default=1m"`
	NotifyRetryBudget   int           `env:"NOTIFY_RETRY_BUDGET,default=3"`
	NotifyRatePerSecond float64       `env:"NOTIFY_RATE_PER_SECOND,default=5"`

	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN,required"`
	TwilioAccountSID  string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `env:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber string `env:"TWILIO_PHONE_NUMBER"`

	MetricsAddr string `env:"METRICS_ADDR,default=:9091"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
}

func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
