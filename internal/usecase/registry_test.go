package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/forexring/ringalerts/internal/domain"
	"go.uber.org/zap"
)

func noopListener(ctx context.Context, tick domain.PriceTick) bool { return false }

func TestRegistryRefCountsAlertsPerPair(t *testing.T) {
	feed := newFakeFeed()
	registry := NewRegistry(feed, zap.NewNop())

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("alert-%d", i)
		if err := registry.AddAlertForPair("EURUSD", noopListener, id); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	if got := registry.AlertCount("EURUSD"); got != 3 {
		t.Fatalf("AlertCount = %d, want 3", got)
	}

	registry.RemoveAlertForPair("EURUSD", "alert-0")
	if got := registry.AlertCount("EURUSD"); got != 2 {
		t.Fatalf("AlertCount after one removal = %d, want 2", got)
	}
	if feed.liveCount() != 2 {
		t.Fatalf("live subscriptions = %d, want 2", feed.liveCount())
	}

	registry.RemoveAlertForPair("EURUSD", "alert-1")
	registry.RemoveAlertForPair("EURUSD", "alert-2")
	if got := registry.AlertCount("EURUSD"); got != 0 {
		t.Fatalf("AlertCount after full removal = %d, want 0", got)
	}
	if feed.liveCount() != 0 {
		t.Fatalf("live subscriptions = %d, want 0", feed.liveCount())
	}
}

func TestRegistryDuplicateRegistrationIsNoOp(t *testing.T) {
	feed := newFakeFeed()
	registry := NewRegistry(feed, zap.NewNop())

	if err := registry.AddAlertForPair("EURUSD", noopListener, "alert-1"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := registry.AddAlertForPair("EURUSD", noopListener, "alert-1"); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if feed.subscribeCalls != 1 {
		t.Fatalf("feed subscribes = %d, want 1", feed.subscribeCalls)
	}
	if got := registry.AlertCount("EURUSD"); got != 1 {
		t.Fatalf("AlertCount = %d, want 1", got)
	}
}

func TestRegistryRemoveUnknownAlertIsNoOp(t *testing.T) {
	feed := newFakeFeed()
	registry := NewRegistry(feed, zap.NewNop())

	registry.RemoveAlertForPair("EURUSD", "never-registered")
	if feed.unsubCalls != 0 {
		t.Fatalf("feed unsubscribes = %d, want 0", feed.unsubCalls)
	}
}

func TestRegistrySubscribeErrorPropagates(t *testing.T) {
	feed := newFakeFeed()
	feed.subscribeErr = errors.New("feed unavailable")
	registry := NewRegistry(feed, zap.NewNop())

	if err := registry.AddAlertForPair("EURUSD", noopListener, "alert-1"); err == nil {
		t.Fatal("expected subscribe error to propagate")
	}
	if got := registry.AlertCount("EURUSD"); got != 0 {
		t.Fatalf("AlertCount after failed add = %d, want 0", got)
	}
}

func TestRegistryClearAllDropsEverything(t *testing.T) {
	feed := newFakeFeed()
	registry := NewRegistry(feed, zap.NewNop())

	pairs := []string{"EURUSD", "EURUSD", "GBPUSD"}
	for i, pair := range pairs {
		if err := registry.AddAlertForPair(pair, noopListener, fmt.Sprintf("alert-%d", i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	registry.ClearAll()
	if feed.liveCount() != 0 {
		t.Fatalf("live subscriptions = %d, want 0", feed.liveCount())
	}
	if registry.AlertCount("EURUSD") != 0 || registry.AlertCount("GBPUSD") != 0 {
		t.Fatal("pair counts survived ClearAll")
	}
}
