package polygon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forexring/ringalerts/internal/domain"
	"github.com/forexring/ringalerts/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Conn is the subset of a websocket connection the feed drives. The
// gorilla connection satisfies it; tests inject fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (int, []byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type wsDialer struct {
	dialer *websocket.Dialer
}

func (d wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateAuthenticating
	stateSubscribed
)

type Options struct {
	URL            string
	APIKey         string
	ReconnectDelay time.Duration
	LogInterval    time.Duration
	DialTimeout    time.Duration
}

// Feed owns exactly one upstream connection and fans ticks out to every
// listener registered for the tick's pair. Registration maps, the
// last-quote cache and the connection handle are all guarded by one
// mutex; fan-out iterates over a snapshot so listeners may unsubscribe
// mid-tick.
type Feed struct {
	opts   Options
	dialer Dialer
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      connState
	conn       Conn
	connEpoch  uint64
	nextSubID  domain.SubscriptionID
	listeners  map[string]map[domain.SubscriptionID]domain.TickListener
	subPairs   map[domain.SubscriptionID]string
	lastQuotes map[string]domain.PriceTick
	reconnect  *time.Timer
	closed     bool
}

func NewFeed(opts Options, dialer Dialer, logger *zap.Logger) *Feed {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.LogInterval <= 0 {
		opts.LogInterval = 5 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 15 * time.Second
	}
	if dialer == nil {
		dialer = wsDialer{dialer: &websocket.Dialer{Proxy: http.ProxyFromEnvironment}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Feed{
		opts:       opts,
		dialer:     dialer,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		listeners:  make(map[string]map[domain.SubscriptionID]domain.TickListener),
		subPairs:   make(map[domain.SubscriptionID]string),
		lastQuotes: make(map[string]domain.PriceTick),
	}
	go f.logQuotesLoop()
	return f
}

// Subscribe registers listener under pair. The first listener for a pair
// triggers an upstream subscribe once the connection is authenticated;
// pairs registered earlier are picked up by the auth-success resubscribe.
func (f *Feed) Subscribe(pair string, listener domain.TickListener) (domain.SubscriptionID, error) {
	if f.opts.APIKey == "" {
		return 0, domain.ErrMissingAPIKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, fmt.Errorf("feed is closed")
	}

	f.nextSubID++
	id := f.nextSubID
	set, ok := f.listeners[pair]
	if !ok {
		set = make(map[domain.SubscriptionID]domain.TickListener)
		f.listeners[pair] = set
	}
	set[id] = listener
	f.subPairs[id] = pair

	switch f.state {
	case stateDisconnected:
		f.state = stateConnecting
		go f.connect()
	case stateSubscribed:
		if len(set) == 1 {
			f.sendSubscribeLocked(pair)
		}
	}
	return id, nil
}

// Unsubscribe removes exactly the listener behind id. Emptying a pair's
// listener set issues an upstream unsubscribe and drops its cached
// quote; emptying the whole feed closes the connection.
func (f *Feed) Unsubscribe(id domain.SubscriptionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribeLocked(id)
}

func (f *Feed) unsubscribeLocked(id domain.SubscriptionID) {
	pair, ok := f.subPairs[id]
	if !ok {
		return
	}
	delete(f.subPairs, id)

	set := f.listeners[pair]
	delete(set, id)
	if len(set) > 0 {
		return
	}

	delete(f.listeners, pair)
	delete(f.lastQuotes, pair)
	if f.state == stateSubscribed {
		f.writeLocked(controlMessage{Action: "unsubscribe", Params: channelName(pair)})
	}
	if len(f.listeners) == 0 {
		f.logger.Info("feed idle, closing connection")
		f.teardownLocked()
	}
}

// Close shuts the feed down for good; it is not restartable.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.teardownLocked()
	f.mu.Unlock()
	f.cancel()
}

func (f *Feed) connect() {
	ctx, cancel := context.WithTimeout(f.ctx, f.opts.DialTimeout)
	conn, err := f.dialer.Dial(ctx, f.opts.URL)
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.logger.Error("feed connect failed", zap.String("url", f.opts.URL), zap.Error(err))
		f.state = stateDisconnected
		f.scheduleReconnectLocked()
		return
	}
	if f.closed || len(f.listeners) == 0 {
		_ = conn.Close()
		f.state = stateDisconnected
		return
	}

	f.conn = conn
	f.connEpoch++
	f.state = stateAuthenticating
	f.logger.Info("feed connected, authenticating", zap.String("url", f.opts.URL))

	if err := conn.WriteJSON(controlMessage{Action: "auth", Params: f.opts.APIKey}); err != nil {
		f.logger.Error("feed auth write failed", zap.Error(err))
		f.teardownLocked()
		f.scheduleReconnectLocked()
		return
	}
	go f.readLoop(conn, f.connEpoch)
}

func (f *Feed) readLoop(conn Conn, epoch uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			f.handleDisconnect(epoch, err)
			return
		}
		for _, ev := range decodeFrame(data, f.logger) {
			switch ev.Ev {
			case statusEvent:
				if !f.handleStatus(ev, epoch) {
					return
				}
			case quoteEvent:
				f.handleQuote(ev)
			}
		}
	}
}

// handleStatus returns false when the read loop must stop.
func (f *Feed) handleStatus(ev wsEvent, epoch uint64) bool {
	switch ev.Status {
	case statusConnected:
		f.logger.Debug("feed status connected")
	case statusAuthSuccess:
		f.mu.Lock()
		if epoch == f.connEpoch {
			f.state = stateSubscribed
			pairs := make([]string, 0, len(f.listeners))
			for pair := range f.listeners {
				f.sendSubscribeLocked(pair)
				pairs = append(pairs, pair)
			}
			f.logger.Info("feed authenticated, subscribed", zap.Strings("pairs", pairs))
		}
		f.mu.Unlock()
	case statusAuthFailed:
		f.logger.Error("feed auth failed", zap.String("message", ev.Message))
		f.handleDisconnect(epoch, fmt.Errorf("auth failed: %s", ev.Message))
		return false
	}
	return true
}

func (f *Feed) handleQuote(ev wsEvent) {
	pair := strings.ReplaceAll(ev.Pair, "/", "")
	tick := domain.PriceTick{
		Pair:      pair,
		Bid:       ev.Bid,
		Ask:       ev.Ask,
		Mid:       decimal.Avg(ev.Bid, ev.Ask),
		Timestamp: ev.Timestamp.String(),
	}

	f.mu.Lock()
	set, ok := f.listeners[pair]
	if !ok {
		f.mu.Unlock()
		return
	}
	f.lastQuotes[pair] = tick
	ids := make([]domain.SubscriptionID, 0, len(set))
	snapshot := make([]domain.TickListener, 0, len(set))
	for id, listener := range set {
		ids = append(ids, id)
		snapshot = append(snapshot, listener)
	}
	f.mu.Unlock()

	metrics.FeedTicks.WithLabelValues(pair).Inc()

	var done []domain.SubscriptionID
	for i, listener := range snapshot {
		if f.invoke(listener, tick) {
			done = append(done, ids[i])
		}
	}
	if len(done) > 0 {
		f.mu.Lock()
		for _, id := range done {
			f.unsubscribeLocked(id)
		}
		f.mu.Unlock()
	}
}

// invoke shields fan-out from a misbehaving listener: a panic is logged
// and treated as "keep the listener", never as a broken read loop.
func (f *Feed) invoke(listener domain.TickListener, tick domain.PriceTick) (remove bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("tick listener panicked",
				zap.String("pair", tick.Pair), zap.Any("panic", r))
			remove = false
		}
	}()
	return listener(f.ctx, tick)
}

func (f *Feed) handleDisconnect(epoch uint64, cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if epoch != f.connEpoch {
		return // a newer connection already took over
	}
	f.logger.Warn("feed disconnected", zap.Error(cause))
	f.teardownLocked()
	f.scheduleReconnectLocked()
}

func (f *Feed) teardownLocked() {
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
	f.connEpoch++
	f.state = stateDisconnected
	if f.reconnect != nil {
		f.reconnect.Stop()
		f.reconnect = nil
	}
}

func (f *Feed) scheduleReconnectLocked() {
	if f.closed || len(f.listeners) == 0 || f.reconnect != nil {
		return
	}
	metrics.FeedReconnects.Inc()
	f.logger.Info("feed reconnect scheduled", zap.Duration("delay", f.opts.ReconnectDelay))
	f.reconnect = time.AfterFunc(f.opts.ReconnectDelay, func() {
		f.mu.Lock()
		f.reconnect = nil
		if f.closed || len(f.listeners) == 0 || f.state != stateDisconnected {
			f.mu.Unlock()
			return
		}
		f.state = stateConnecting
		f.mu.Unlock()
		f.connect()
	})
}

func (f *Feed) sendSubscribeLocked(pair string) {
	f.writeLocked(controlMessage{Action: "subscribe", Params: channelName(pair)})
}

func (f *Feed) writeLocked(msg controlMessage) {
	if f.conn == nil {
		return
	}
	if err := f.conn.WriteJSON(msg); err != nil {
		f.logger.Error("feed write failed",
			zap.String("action", msg.Action), zap.String("params", msg.Params), zap.Error(err))
	}
}

// logQuotesLoop emits one consolidated line of every cached quote.
// Entries vanish as soon as their pair has no listeners, so volume
// tracks subscription count.
func (f *Feed) logQuotesLoop() {
	ticker := time.NewTicker(f.opts.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			quotes := make([]string, 0, len(f.lastQuotes))
			for pair, tick := range f.lastQuotes {
				quotes = append(quotes, pair+"="+tick.Mid.String())
			}
			f.mu.Unlock()
			if len(quotes) == 0 {
				continue
			}
			sort.Strings(quotes)
			f.logger.Info("live quotes", zap.String("mid", strings.Join(quotes, " ")))
		}
	}
}

func channelName(pair string) string {
	return "C." + strings.ReplaceAll(pair, "/", "")
}

// decodeFrame accepts both array frames and single-object frames; the
// upstream sends arrays, single objects show up in tests and replays.
func decodeFrame(data []byte, logger *zap.Logger) []wsEvent {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		var events []wsEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			logger.Debug("feed frame ignored", zap.Error(err))
			return nil
		}
		return events
	}
	var ev wsEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		logger.Debug("feed frame ignored", zap.Error(err))
		return nil
	}
	return []wsEvent{ev}
}
