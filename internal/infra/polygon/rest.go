package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forexring/ringalerts/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RESTClient serves synchronous last-quote lookups for the fallback
// poll sweep, off the v1 currencies endpoint.
type RESTClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewRESTClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *RESTClient) LastQuote(ctx context.Context, pair string) (*domain.PriceTick, error) {
	if c.apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}
	if len(pair) < 6 {
		return nil, fmt.Errorf("malformed pair %q", pair)
	}

	url := fmt.Sprintf("%s/last_quote/currencies/%s/%s?apiKey=%s",
		c.baseURL, pair[:3], pair[3:6], c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("last quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("last quote for %s: unexpected status %s", pair, resp.Status)
	}

	var payload lastQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode last quote: %w", err)
	}
	if payload.Last.Bid.IsZero() && payload.Last.Ask.IsZero() {
		return nil, fmt.Errorf("last quote for %s: empty payload", pair)
	}

	tick := &domain.PriceTick{
		Pair:      pair,
		Bid:       payload.Last.Bid,
		Ask:       payload.Last.Ask,
		Mid:       decimal.Avg(payload.Last.Bid, payload.Last.Ask),
		Timestamp: payload.Last.Timestamp.String(),
	}
	c.logger.Debug("fetched last quote", zap.String("pair", pair), zap.String("mid", tick.Mid.String()))
	return tick, nil
}
