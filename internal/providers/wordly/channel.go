package wordly

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"captionview/internal/ports"
)

const (
	defaultEndpoint = "wss://endpoint.wordly.ai/attend"
	writeWait       = 10 * time.Second
	closeWait       = time.Second
	maxMessageSize  = 8 << 20
)

// Config controls the attendee websocket.
type Config struct {
	Endpoint         string
	HandshakeTimeout time.Duration
}

// Dialer implements ports.Dialer for the Wordly attend endpoint.
type Dialer struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewDialer(cfg Config) *Dialer {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Dialer{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

func (d *Dialer) Dial(ctx context.Context) (ports.Channel, error) {
	endpoint, err := normalizeEndpoint(d.cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	conn, _, err := d.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to translation endpoint: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	ch := &channel{
		conn:     conn,
		messages: make(chan []byte, 64),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

type channel struct {
	conn *websocket.Conn

	messages chan []byte
	closing  chan struct{}
	done     chan struct{}

	writeMu sync.Mutex

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

func (c *channel) Send(payload []byte) error {
	select {
	case <-c.closing:
		return errors.New("channel is closed")
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (c *channel) Messages() <-chan []byte {
	return c.messages
}

func (c *channel) Wait() error {
	<-c.done
	return c.waitErr()
}

func (c *channel) Close(code int, reason string) error {
	var closeErr error
	c.closeOnce.Do(func() {
		close(c.closing)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(code, reason)
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			closeErr = fmt.Errorf("failed to send close frame: %w", err)
		}
		c.writeMu.Unlock()

		_ = c.conn.Close()
	})
	return closeErr
}

func (c *channel) readLoop() {
	defer func() {
		close(c.messages)
		close(c.done)
	}()

	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closing:
			default:
				c.setErr(err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		select {
		case c.messages <- payload:
		case <-c.closing:
			return
		}
	}
}

func (c *channel) waitErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *channel) setErr(err error) {
	if err == nil || isCleanClose(err) {
		return
	}

	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func isCleanClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

func normalizeEndpoint(raw string) (string, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasPrefix(endpoint, "https://") {
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	} else if strings.HasPrefix(endpoint, "http://") {
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid translation endpoint: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid translation endpoint scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}
