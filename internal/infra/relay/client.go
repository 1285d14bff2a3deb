package relay

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
	"github.com/dmoshi/face-count-service/internal/infra/metrics"
)

// State of the relay connection. Owned exclusively by the Client; no other
// component inspects or mutates it.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Client maintains the persistent outbound connection to the notification
// server. Connects retry forever with a fixed delay (availability over
// responsiveness), but honor context cancellation so shutdown is never
// blocked. The single connection handle is shared between the background
// listener and any number of job-triggered sends; the mutex gives writers
// and reconnects exclusive access.
type Client struct {
	url        string
	retryDelay time.Duration
	dialer     *websocket.Dialer
	logger     *zap.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	state State

	// test seam for observing state transitions
	onStateChange func(State)
}

func NewClient(url string, retryDelay time.Duration, insecureTLS bool, logger *zap.Logger) *Client {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if insecureTLS {
		// Relay endpoints are operator-controlled and often run self-signed.
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		url:        url,
		retryDelay: retryDelay,
		dialer:     dialer,
		logger:     logger,
	}
}

func (c *Client) setState(s State) {
	c.state = s
	if c.onStateChange != nil {
		c.onStateChange(s)
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect blocks until a connection is established or ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// connectLocked retries forever with a fixed delay. Caller holds c.mu.
func (c *Client) connectLocked(ctx context.Context) error {
	for {
		c.setState(Connecting)
		c.logger.Info("connecting to relay server", zap.String("url", c.url))

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			c.conn = conn
			c.setState(Connected)
			c.logger.Info("connected to relay server")
			return nil
		}

		c.setState(Disconnected)
		metrics.RelayReconnectsTotal.Inc()
		c.logger.Error("relay connection failed, retrying",
			zap.Duration("retry_delay", c.retryDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

// Send serializes and writes one message. If the link is down it first
// connects, which can block for an unbounded time. A write failure marks the
// connection dead and is reported to the caller; the message itself is not
// retried.
func (c *Client) Send(ctx context.Context, msg entity.RelayMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Connected {
		if err := c.connectLocked(ctx); err != nil {
			return fmt.Errorf("relay connect: %w", err)
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// Presume the link is dead; the next send or the listener reconnects.
		c.dropLocked()
		return fmt.Errorf("relay send: %w", err)
	}

	c.logger.Info("relay message sent",
		zap.String("target_session", msg.TargetSession),
		zap.Int("count", msg.Misc.Count),
	)
	return nil
}

// Listen runs for the lifetime of the process, reading inbound messages used
// for session bookkeeping and reconnecting whenever the link drops.
func (c *Client) Listen(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		conn := c.conn
		connected := c.state == Connected
		c.mu.Unlock()

		if !connected {
			if err := c.Connect(ctx); err != nil {
				return
			}
			continue
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("relay connection lost, reconnecting", zap.Error(err))

			c.mu.Lock()
			// Only drop if nobody replaced the handle in the meantime.
			if c.conn == conn {
				c.dropLocked()
			}
			c.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if len(msg) > 0 {
			c.logger.Debug("relay message received", zap.ByteString("message", msg))
		}
	}
}

// dropLocked clears the handle and state. Caller holds c.mu.
func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.setState(Disconnected)
}

// Close tears the connection down.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}
