package polygon

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// controlMessage is the outbound frame shape shared by auth, subscribe
// and unsubscribe actions.
type controlMessage struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// wsEvent is one element of an inbound JSON-array frame. Quote events
// (ev=="C") carry pair, bid, ask and an epoch-millis timestamp; status
// events carry the auth handshake.
type wsEvent struct {
	Ev        string          `json:"ev"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Pair      string          `json:"p"`
	Bid       decimal.Decimal `json:"b"`
	Ask       decimal.Decimal `json:"a"`
	Timestamp json.Number     `json:"t"`
}

const (
	statusEvent = "status"
	quoteEvent  = "C"

	statusConnected   = "connected"
	statusAuthSuccess = "auth_success"
	statusAuthFailed  = "auth_failed"
)

// lastQuoteResponse is the REST last-quote payload for a currency pair.
type lastQuoteResponse struct {
	Status string `json:"status"`
	Symbol string `json:"symbol"`
	Last   struct {
		Bid       decimal.Decimal `json:"bid"`
		Ask       decimal.Decimal `json:"ask"`
		Timestamp json.Number     `json:"timestamp"`
	} `json:"last"`
}
