package service

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"deriv_bot/internal/modules/config"
	"deriv_bot/pkg/logger"
)

// ConnState — кому интересно состояние сокета (health).
type ConnState interface {
	SetWSConnected(v bool)
}

type Client struct {
	cfg      *config.Config
	ch       *Channel
	wsDialer *websocket.Dialer
	state    ConnState

	connected atomic.Bool
}

func NewClient(cfg *config.Config, state ConnState) *Client {
	return &Client{
		cfg:      cfg,
		ch:       NewChannel(cfg.Deriv.EventsBuffer),
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		state:    state,
	}
}

// NewClientWithChannel — для тестов и своих транспортов.
func NewClientWithChannel(cfg *config.Config, ch *Channel) *Client {
	return &Client{cfg: cfg, ch: ch}
}

func (c *Client) Channel() *Channel { return c.ch }

func (c *Client) Connected() bool { return c.connected.Load() }

func (c *Client) setConnected(v bool) {
	c.connected.Store(v)
	if c.state != nil {
		c.state.SetWSConnected(v)
	}
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.Deriv.URL)
	if err != nil {
		return "", fmt.Errorf("deriv url: %w", err)
	}
	q := u.Query()
	q.Set("app_id", c.cfg.Deriv.AppID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run держит соединение: dial, authorize, keepalive ping, переподключение.
// Возвращается, когда ctx отменён.
func (c *Client) Run(ctx context.Context) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	for {
		logger.Info("deriv ws: connect %s", c.cfg.Deriv.URL)
		conn, _, err := c.wsDialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			logger.Error("deriv ws: dial error: %v", err)
		} else {
			c.serve(ctx, conn)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.Deriv.ReconnectDelay):
		}
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.ch.Attach(conn)
	c.setConnected(true)
	defer c.setConnected(false)

	// закрываем сокет при отмене, иначе ReadMessage не отпустит
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	go c.keepalive(connCtx)

	if token := c.cfg.Deriv.APIToken; token != "" {
		go func() {
			if err := c.Authorize(connCtx, token); err != nil {
				logger.Error("deriv ws: authorize failed: %v", err)
				return
			}
			logger.Info("deriv ws: authorized")
		}()
	}

	if err := c.ch.ReadLoop(conn); err != nil && connCtx.Err() == nil {
		logger.Error("deriv ws: read error: %v", err)
	}
}

// keepalive ping каждые 20s — иначе площадка рвёт простаивающий сокет
func (c *Client) keepalive(ctx context.Context) {
	every := c.cfg.Deriv.PingInterval
	if every <= 0 {
		every = 20 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.ch.Send(ctx, Request{"ping": 1}); err != nil {
				logger.Warn("deriv ws: ping failed: %v", err)
			}
		}
	}
}

// Authorize привязывает сессию к API-токену.
func (c *Client) Authorize(ctx context.Context, token string) error {
	_, err := c.ch.Call(ctx, Request{"authorize": token}, 10*time.Second)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	return nil
}
