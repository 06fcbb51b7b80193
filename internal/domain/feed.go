package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrMissingAPIKey is returned synchronously by Subscribe when the feed
// has no credentials, before any network action.
var ErrMissingAPIKey = errors.New("market data api key not configured")

// PriceTick is one normalized price update for a pair. Ticks are
// ephemeral; only the latest tick per pair is cached in memory.
type PriceTick struct {
	Pair      string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Mid       decimal.Decimal
	Timestamp string
}

// TickListener consumes one tick. Returning true tells the feed this
// listener is satisfied and must be removed without waiting for the
// next tick.
type TickListener func(ctx context.Context, tick PriceTick) bool

// SubscriptionID is an opaque handle for one registered listener.
type SubscriptionID uint64

type PriceFeed interface {
	Subscribe(pair string, listener TickListener) (SubscriptionID, error)
	Unsubscribe(id SubscriptionID)
}

// QuoteSource serves synchronous last-quote lookups, used by the
// fallback poll sweep.
type QuoteSource interface {
	LastQuote(ctx context.Context, pair string) (*PriceTick, error)
}
