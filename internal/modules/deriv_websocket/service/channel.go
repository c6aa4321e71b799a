package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"deriv_bot/internal/models"
	"deriv_bot/pkg/logger"
	"deriv_bot/pkg/tracing"
)

// Conn — то, что нужно каналу от сокета; *websocket.Conn подходит.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// общий на процесс счётчик req_id
var reqSeq atomic.Int64

func nextReqID() int64 { return reqSeq.Add(1) }

type result struct {
	frame Frame
	err   error
}

type pendingCall struct {
	once sync.Once
	done chan result
}

func (p *pendingCall) settle(f Frame, err error) {
	p.once.Do(func() {
		p.done <- result{frame: f, err: err}
	})
}

// Channel сопоставляет запросы и ответы по req_id поверх одного сокета.
type Channel struct {
	mu      sync.Mutex
	conn    Conn
	pending map[int64]*pendingCall

	writeMu sync.Mutex
	events  chan Frame
}

func NewChannel(eventsBuffer int) *Channel {
	if eventsBuffer <= 0 {
		eventsBuffer = 256
	}
	return &Channel{
		pending: make(map[int64]*pendingCall),
		events:  make(chan Frame, eventsBuffer),
	}
}

// Events — кадры без ожидающего вызова (подписки, опоздавшие ответы без req_id и т.п.).
func (c *Channel) Events() <-chan Frame { return c.events }

// Pending — сколько вызовов ждут ответа.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Attach вешает новое соединение. Старые ожидающие вызовы к этому моменту уже сброшены.
func (c *Channel) Attach(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// Detach отвязывает сокет и валит все ожидающие вызовы с ErrConnectionLost.
func (c *Channel) Detach(cause error) {
	c.mu.Lock()
	c.conn = nil
	calls := c.pending
	c.pending = make(map[int64]*pendingCall)
	c.mu.Unlock()

	err := models.ErrConnectionLost
	if cause != nil {
		err = fmt.Errorf("%w: %v", models.ErrConnectionLost, cause)
	}
	for _, p := range calls {
		p.settle(Frame{}, err)
	}
	if len(calls) > 0 {
		logger.Warn("deriv ws: dropped %d pending calls: %v", len(calls), cause)
	}
}

func (c *Channel) register() (int64, *pendingCall, Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return 0, nil, nil
	}
	id := nextReqID()
	for {
		if _, busy := c.pending[id]; !busy {
			break
		}
		id = nextReqID()
	}
	p := &pendingCall{done: make(chan result, 1)}
	c.pending[id] = p
	return id, p, c.conn
}

// take удаляет вызов из таблицы; вернул не nil — значит, вызов теперь твой.
func (c *Channel) take(id int64) *pendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	return p
}

func (c *Channel) write(conn Conn, msg any) error {
	raw, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// Call шлёт запрос и ждёт ответ с тем же req_id, не дольше timeout.
func (c *Channel) Call(ctx context.Context, req Request, timeout time.Duration) (_ Frame, err error) {
	span, ctx := tracing.StartSpan(ctx, "deriv.call."+msgTypeOf(req))
	defer func() { tracing.Finish(span, err) }()

	id, p, conn := c.register()
	if p == nil {
		return Frame{}, models.ErrConnectionLost
	}
	span.SetTag("req_id", id)

	out := make(Request, len(req)+1)
	for k, v := range req {
		out[k] = v
	}
	out["req_id"] = id

	if err := c.write(conn, out); err != nil {
		if c.take(id) != nil {
			return Frame{}, fmt.Errorf("%w: write: %v", models.ErrConnectionLost, err)
		}
		r := <-p.done
		return r.frame, r.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-p.done:
		return r.frame, r.err
	case <-timer.C:
		if c.take(id) != nil {
			return Frame{}, fmt.Errorf("%w: %s after %s", models.ErrTimeout, msgTypeOf(req), timeout)
		}
	case <-ctx.Done():
		if c.take(id) != nil {
			return Frame{}, ctx.Err()
		}
	}
	// ответ успел прийти параллельно
	r := <-p.done
	return r.frame, r.err
}

// Send — запрос без ожидания ответа (ping и т.п.).
func (c *Channel) Send(_ context.Context, req Request) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return models.ErrConnectionLost
	}
	return c.write(conn, req)
}

// dispatch раскладывает входящий кадр: в ожидающий вызов или в events.
func (c *Channel) dispatch(raw []byte) {
	f, hasID, err := parseFrame(raw)
	if err != nil {
		logger.Warn("deriv ws: bad frame: %v", err)
		return
	}

	if hasID {
		if p := c.take(f.ReqID); p != nil {
			if f.Error != nil {
				p.settle(f, f.Error)
			} else {
				p.settle(f, nil)
			}
			return
		}
		// опоздавший или повторный ответ
		if f.MsgType != "ping" {
			logger.Debug("deriv ws: no pending call for req_id=%d (%s)", f.ReqID, f.MsgType)
		}
		return
	}

	select {
	case c.events <- f:
	default:
		logger.Warn("deriv ws: events buffer full, dropped %s", f.MsgType)
	}
}

// ReadLoop читает сокет до ошибки; на выходе сбрасывает ожидающие вызовы.
func (c *Channel) ReadLoop(conn Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.Detach(err)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.dispatch(msg)
	}
}

func msgTypeOf(req Request) string {
	for _, k := range knownCalls {
		if _, ok := req[k]; ok {
			return k
		}
	}
	return "unknown"
}

var knownCalls = []string{
	"ticks_history", "proposal", "buy", "authorize", "active_symbols", "ping", "forget", "balance",
}
