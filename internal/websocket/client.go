package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"rentdirect/internal/logging"
	"rentdirect/pkg/interfaces"
)

// ClientConfig controls reconnection on top of ConnectionConfig.
type ClientConfig struct {
	Connection           ConnectionConfig
	HandshakeTimeout     time.Duration
	Reconnect            bool
	ReconnectDelay       time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int // 0 means unlimited
}

// DefaultClientConfig reconnects forever with 1s..30s backoff.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Connection:        DefaultConnectionConfig(),
		HandshakeTimeout:  10 * time.Second,
		Reconnect:         true,
		ReconnectDelay:    time.Second,
		ReconnectMaxDelay: 30 * time.Second,
	}
}

// Transport opens reconnecting clients. It implements interfaces.Transport.
type Transport struct {
	dialer *Dialer
	cfg    ClientConfig
	logger hclog.Logger
}

func NewTransport(socketURL string, cfg ClientConfig, logger hclog.Logger) *Transport {
	return &Transport{
		dialer: NewDialer(socketURL, cfg.HandshakeTimeout),
		cfg:    cfg,
		logger: logging.OrNull(logger),
	}
}

// Connect starts a client in the background and returns immediately.
func (t *Transport) Connect(token string, handler interfaces.TransportHandler) (interfaces.TransportConn, error) {
	if token == "" {
		return nil, interfaces.ErrMissingToken
	}
	c := newClient(t.dialer, token, handler, t.cfg, t.logger)
	c.start()
	return c, nil
}

// State of a Client's underlying socket.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is one logical realtime connection that redials with exponential
// backoff after transport failures. Callbacks run on the client's own
// goroutine, one at a time.
type Client struct {
	dialer  *Dialer
	token   string
	handler interfaces.TransportHandler
	cfg     ClientConfig
	logger  hclog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conn  *Connection
	state atomic.Int32
	// closed is set by Close; callbacks check it before every invocation.
	closed atomic.Bool
}

func newClient(d *Dialer, token string, h interfaces.TransportHandler, cfg ClientConfig, logger hclog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		dialer:  d,
		token:   token,
		handler: h,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Client) start() {
	c.wg.Add(1)
	go c.run()
}

func (c *Client) run() {
	defer c.wg.Done()
	defer c.state.Store(int32(StateClosed))

	failures := 0
	for {
		if c.ctx.Err() != nil {
			return
		}
		c.state.Store(int32(StateConnecting))

		ws, err := c.dialer.Dial(c.ctx, c.token)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			failures++
			c.logger.Warn("dial failed", "attempt", failures, "error", err)
			if errors.Is(err, ErrUnauthorized) || !c.retry(failures) {
				c.state.Store(int32(StateDisconnected))
				c.fireClosed(&TransportError{Op: "dial", Err: err})
				return
			}
			continue
		}

		conn := NewConnection(ws, c.cfg.Connection)
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		if c.closed.Load() {
			conn.Close()
			return
		}

		failures = 0
		c.state.Store(int32(StateConnected))
		c.logger.Debug("connected")
		c.fireConnect()

		err = conn.ReadLoop(c.fireEvent)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		c.state.Store(int32(StateDisconnected))

		if c.closed.Load() {
			return
		}

		c.logger.Warn("connection lost", "error", err)
		c.fireDisconnect(&TransportError{Op: "read", Err: err})

		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.ClosePolicyViolation) {
			c.fireClosed(&TransportError{Op: "read", Err: ErrServerClosed})
			return
		}

		failures++
		if !c.retry(failures) {
			c.fireClosed(&TransportError{Op: "reconnect", Err: ErrRetriesExhaust})
			return
		}
	}
}

// retry sleeps the backoff for the given failure count and reports whether
// another attempt should be made.
func (c *Client) retry(failures int) bool {
	if !c.cfg.Reconnect {
		return false
	}
	if c.cfg.MaxReconnectAttempts > 0 && failures > c.cfg.MaxReconnectAttempts {
		return false
	}

	delay := c.backoff(failures)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Client) backoff(failures int) time.Duration {
	delay := c.cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	for i := 1; i < failures; i++ {
		delay *= 2
		if c.cfg.ReconnectMaxDelay > 0 && delay >= c.cfg.ReconnectMaxDelay {
			return c.cfg.ReconnectMaxDelay
		}
	}
	return delay
}

func (c *Client) fireConnect() {
	if c.handler.OnConnect != nil && !c.closed.Load() {
		c.handler.OnConnect()
	}
}

func (c *Client) fireDisconnect(err error) {
	if c.handler.OnDisconnect != nil && !c.closed.Load() {
		c.handler.OnDisconnect(err)
	}
}

func (c *Client) fireClosed(err error) {
	if c.handler.OnClosed != nil && !c.closed.Load() {
		c.handler.OnClosed(err)
	}
}

func (c *Client) fireEvent(f Frame) {
	if c.handler.OnEvent != nil && !c.closed.Load() {
		c.handler.OnEvent(f.Event, f.Data)
	}
}

// Emit sends one event. It fails with interfaces.ErrNotConnected while the
// socket is down; nothing is queued for later.
func (c *Client) Emit(event string, payload any) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return interfaces.ErrNotConnected
	}

	f, err := NewFrame(event, payload)
	if err != nil {
		return err
	}
	return conn.WriteFrame(f)
}

// State reports the socket state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Close stops reconnecting and closes the socket. Callbacks are suppressed
// from then on. It does not wait for the client goroutine, so it is safe
// to call from inside a callback; use Wait for that.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Wait blocks until the client goroutine has exited.
func (c *Client) Wait() {
	c.wg.Wait()
}
