package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/exchange-trader/internal/events"
	"github.com/rickgao/exchange-trader/internal/metrics"
)

// Session supplies the REST session token used to authenticate the stream.
type Session interface {
	SessionToken() string
}

// Publisher receives the snapshots produced by the stream.
type Publisher interface {
	Put(e events.Event) bool
}

// Config configures the stream client.
type Config struct {
	URL                string
	AppKey             string
	MarketFilter       MarketFilter
	Fields             []string // Defaults to DefaultFields
	HeartbeatMs        int
	ConflateMs         int
	BufferSize         int
	PingInterval       time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	conn := DefaultConnConfig()
	return Config{
		Fields:             DefaultFields,
		HeartbeatMs:        5000,
		BufferSize:         conn.BufferSize,
		PingInterval:       conn.PingInterval,
		PingTimeout:        conn.PingTimeout,
		WriteTimeout:       conn.WriteTimeout,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
	}
}

// Client keeps one stream subscription alive and publishes a MarketBook
// for every changed market.
type Client struct {
	cfg     Config
	session Session
	out     Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Owned by the Run goroutine.
	caches     map[string]*marketCache
	initialClk string
	clk        string
	nextID     int64
}

// NewClient creates a stream client.
func NewClient(cfg Config, session Session, out Publisher, logger *slog.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = DefaultFields
	}
	return &Client{
		cfg:     cfg,
		session: session,
		out:     out,
		logger:  logger,
		metrics: m,
		caches:  make(map[string]*marketCache),
	}
}

// Run connects and processes messages until ctx is done, reconnecting with
// exponential backoff after every failure.
func (c *Client) Run(ctx context.Context) error {
	wait := c.cfg.ReconnectBaseDelay

	for {
		received, err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == "INVALID_APP_KEY" {
			return err
		}

		if received {
			wait = c.cfg.ReconnectBaseDelay
		}
		c.metrics.StreamReconnect()
		c.logger.Warn("stream disconnected, reconnecting",
			"error", err,
			"wait", wait,
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		wait *= 2
		if wait > c.cfg.ReconnectMaxDelay {
			wait = c.cfg.ReconnectMaxDelay
		}
	}
}

// runOnce runs one connection. received reports whether any market change
// arrived before it ended.
func (c *Client) runOnce(ctx context.Context) (received bool, err error) {
	conn := NewConn(ConnConfig{
		URL:          c.cfg.URL,
		PingInterval: c.cfg.PingInterval,
		PingTimeout:  c.cfg.PingTimeout,
		WriteTimeout: c.cfg.WriteTimeout,
		BufferSize:   c.cfg.BufferSize,
	}, c.logger)

	if err := conn.Connect(ctx); err != nil {
		return false, fmt.Errorf("connect stream: %w", err)
	}
	defer conn.Close()

	if err := conn.Send(c.authenticationMessage()); err != nil {
		return false, fmt.Errorf("send authentication: %w", err)
	}
	if err := conn.Send(c.subscriptionMessage()); err != nil {
		return false, fmt.Errorf("send subscription: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return received, ctx.Err()

		case err := <-conn.Errors():
			// Messages read before the failure still carry clocks and
			// status changes.
			changed, herr := c.drain(conn)
			received = received || changed
			if herr != nil {
				return received, herr
			}
			return received, err

		case msg := <-conn.Messages():
			changed, err := c.handle(msg)
			if err != nil {
				return received, err
			}
			received = received || changed
		}
	}
}

// drain handles every message already buffered on conn without blocking.
func (c *Client) drain(conn *Conn) (received bool, err error) {
	for {
		select {
		case msg := <-conn.Messages():
			changed, err := c.handle(msg)
			if err != nil {
				return received, err
			}
			received = received || changed
		default:
			return received, nil
		}
	}
}

func (c *Client) authenticationMessage() AuthenticationMessage {
	c.nextID++
	return AuthenticationMessage{
		Op:      OpAuthentication,
		ID:      c.nextID,
		AppKey:  c.cfg.AppKey,
		Session: c.session.SessionToken(),
	}
}

func (c *Client) subscriptionMessage() MarketSubscriptionMessage {
	c.nextID++
	return MarketSubscriptionMessage{
		Op:           OpMarketSubscription,
		ID:           c.nextID,
		MarketFilter: c.cfg.MarketFilter,
		MarketDataFilter: MarketDataFilter{
			Fields: c.cfg.Fields,
		},
		InitialClk:  c.initialClk,
		Clk:         c.clk,
		HeartbeatMs: c.cfg.HeartbeatMs,
		ConflateMs:  c.cfg.ConflateMs,
	}
}

// handle processes one raw message. changed reports whether it carried
// market changes.
func (c *Client) handle(msg Message) (changed bool, err error) {
	c.metrics.StreamMessage()

	env, err := decode[envelope](msg.Data)
	if err != nil {
		c.logger.Warn("undecodable stream message", "error", err, "size", len(msg.Data))
		return false, nil
	}

	switch env.Op {
	case OpConnection:
		cm, err := decode[ConnectionMessage](msg.Data)
		if err == nil {
			c.logger.Info("stream connected", "connection_id", cm.ConnectionID)
		}
		return false, nil

	case OpStatus:
		sm, err := decode[StatusMessage](msg.Data)
		if err != nil {
			return false, fmt.Errorf("decode status: %w", err)
		}
		if sm.StatusCode != "SUCCESS" {
			return false, &StatusError{Code: sm.ErrorCode, Message: sm.ErrorMessage}
		}
		c.logger.Debug("stream request acknowledged", "id", sm.ID)
		return false, nil

	case OpMarketChange:
		mcm, err := decode[MarketChangeMessage](msg.Data)
		if err != nil {
			return false, fmt.Errorf("decode mcm: %w", err)
		}
		return c.handleMarketChange(mcm, msg.ReceivedAt), nil

	default:
		c.logger.Debug("unhandled stream op", "op", env.Op)
		return false, nil
	}
}

func (c *Client) handleMarketChange(mcm MarketChangeMessage, receivedAt time.Time) bool {
	if mcm.InitialClk != "" {
		c.initialClk = mcm.InitialClk
	}
	if mcm.Clk != "" {
		c.clk = mcm.Clk
	}
	if mcm.Ct == ChangeHeartbeat || len(mcm.Mc) == 0 {
		return false
	}

	publishTime := time.UnixMilli(mcm.Pt).UTC()
	for _, mc := range mcm.Mc {
		cache, ok := c.caches[mc.ID]
		if !ok {
			cache = newMarketCache(mc.ID)
			c.caches[mc.ID] = cache
		}
		cache.apply(mc, publishTime)

		book := cache.snapshot(receivedAt)
		if !c.out.Put(events.MarketBookEvent{Book: book}) {
			c.logger.Warn("handler queue closed, dropping market book", "market_id", mc.ID)
		}
	}
	return true
}
