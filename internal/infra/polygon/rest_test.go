package polygon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forexring/ringalerts/internal/domain"
	"go.uber.org/zap"
)

func TestLastQuoteParsesMidFromBidAsk(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"symbol": "EUR/USD",
			"last": {"bid": 1.1000, "ask": 1.2000, "timestamp": 1700000000000}
		}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "test-key", 5*time.Second, zap.NewNop())
	tick, err := c.LastQuote(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("LastQuote: %v", err)
	}

	if gotPath != "/last_quote/currencies/EUR/USD" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("apiKey = %q", gotKey)
	}
	if tick.Pair != "EURUSD" {
		t.Errorf("pair = %q", tick.Pair)
	}
	if got := tick.Mid.String(); got != "1.15" {
		t.Errorf("mid = %s, want 1.15", got)
	}
	if tick.Timestamp != "1700000000000" {
		t.Errorf("timestamp = %q", tick.Timestamp)
	}
}

func TestLastQuoteRejectsEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "success", "symbol": "EUR/USD", "last": {}}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "test-key", 5*time.Second, zap.NewNop())
	if _, err := c.LastQuote(context.Background(), "EURUSD"); err == nil {
		t.Fatal("expected error for empty quote payload")
	}
}

func TestLastQuoteRequiresAPIKey(t *testing.T) {
	c := NewRESTClient("http://unused", "", 5*time.Second, zap.NewNop())
	_, err := c.LastQuote(context.Background(), "EURUSD")
	if !errors.Is(err, domain.ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}
