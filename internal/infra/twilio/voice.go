package twilio

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// Client places voice calls through Twilio Programmable Voice. The
// message is spoken via an inline TwiML <Say> verb.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
	logger     *zap.Logger
}

func NewClient(accountSID, authToken, from string, logger *zap.Logger) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (c *Client) Call(ctx context.Context, to, message string) error {
	if c.accountSID == "" || c.authToken == "" || c.from == "" {
		return fmt.Errorf("twilio credentials not configured")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Twiml", fmt.Sprintf("<Response><Say>%s</Say></Response>", html.EscapeString(message)))

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("place call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("place call to %s: status %s: %s", to, resp.Status, strings.TrimSpace(string(body)))
	}

	c.logger.Info("voice call placed", zap.String("to", to))
	return nil
}
