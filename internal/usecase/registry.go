package usecase

import (
	"sync"

	"github.com/forexring/ringalerts/internal/domain"
	"go.uber.org/zap"
)

// Registry is alert-level bookkeeping over the price feed: callers think
// in alerts, the feed thinks in pairs. It holds no trigger logic.
type Registry struct {
	feed   domain.PriceFeed
	logger *zap.Logger

	mu         sync.Mutex
	pairCounts map[string]int
	subs       map[string]domain.SubscriptionID
}

func NewRegistry(feed domain.PriceFeed, logger *zap.Logger) *Registry {
	return &Registry{
		feed:       feed,
		logger:     logger,
		pairCounts: make(map[string]int),
		subs:       make(map[string]domain.SubscriptionID),
	}
}

// AddAlertForPair registers listener for the alert's pair. Registering
// the same alert twice is a no-op, so creation-flow retries cannot
// duplicate upstream subscriptions.
func (r *Registry) AddAlertForPair(pair string, listener domain.TickListener, alertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[alertID]; ok {
		r.logger.Debug("alert already subscribed", zap.String("alert_id", alertID), zap.String("pair", pair))
		return nil
	}

	id, err := r.feed.Subscribe(pair, listener)
	if err != nil {
		return err
	}
	r.subs[alertID] = id
	r.pairCounts[pair]++
	return nil
}

func (r *Registry) RemoveAlertForPair(pair string, alertID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.subs[alertID]
	if !ok {
		return
	}
	delete(r.subs, alertID)

	if count := r.pairCounts[pair]; count <= 1 {
		delete(r.pairCounts, pair)
	} else {
		r.pairCounts[pair] = count - 1
	}
	r.feed.Unsubscribe(id)
}

// AlertCount is a diagnostic read of a pair's reference count.
func (r *Registry) AlertCount(pair string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pairCounts[pair]
}

// ClearAll drops every subscription and resets the maps. Run once at
// process start so no stale in-memory state survives a restart before
// active alerts are re-scanned from the store.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.subs {
		r.feed.Unsubscribe(id)
	}
	r.pairCounts = make(map[string]int)
	r.subs = make(map[string]domain.SubscriptionID)
}
