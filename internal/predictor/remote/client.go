// Package remote talks to a SAM2 inference server over a websocket.
//
// Every request carries an id; the server answers with one response per
// request, except propagate, which streams one response per frame followed
// by a final response with done set.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sam-segmenter/internal/logger"
)

const (
	// Time allowed to write a request to the server
	writeWait = 10 * time.Second

	DefaultRequestTimeout = 5 * time.Minute

	maxMessageSize = 256 << 20
)

var ErrServer = errors.New("inference server error")

// Client serialises requests over a single websocket connection.
//
// A failed read or write leaves a gorilla connection unusable, so the client
// marks itself broken and redials before the next request. Predictor and
// session handles issued on the old connection may no longer be valid.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	broken  error
	nextID  uint64
	timeout time.Duration
	logger  logger.Logger
	url     string
}

// Dial connects to the inference server at url (ws:// or wss://).
func Dial(ctx context.Context, url string, timeout time.Duration, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	conn, err := dial(ctx, url)
	if err != nil {
		return nil, err
	}
	log.Info("RemotePredictor", "connected to inference server", map[string]interface{}{
		"url": url,
	})

	return &Client{conn: conn, timeout: timeout, logger: log, url: url}, nil
}

func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial inference server %s: %w", url, err)
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

// reconnect replaces a broken connection. Callers hold mu.
func (c *Client) reconnect(ctx context.Context) error {
	c.logger.Warning("RemotePredictor", "reconnecting to inference server", map[string]interface{}{
		"url":   c.url,
		"cause": c.broken.Error(),
	})
	_ = c.conn.Close()

	conn, err := dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("connection lost (%v): %w", c.broken, err)
	}
	c.conn = conn
	c.broken = nil
	return nil
}

// fail marks the connection unusable and returns err.
func (c *Client) fail(err error) error {
	c.broken = err
	return err
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return c.conn.Close()
}

// call sends req and feeds responses with the same id to handle until it
// reports done. Responses to other ids are discarded.
func (c *Client) call(ctx context.Context, req request, handle func(response) (bool, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.broken != nil {
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}

	c.nextID++
	req.ID = c.nextID

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return c.fail(err)
	}

	// cancellation moves the read deadline to now; it is armed after the
	// deadline is set and drained before the lock is released
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return c.fail(err)
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return c.fail(fmt.Errorf("send %s: %w", req.Op, err))
	}

	c.logger.Debug("RemotePredictor", "request sent", map[string]interface{}{
		"op": req.Op,
		"id": req.ID,
	})

	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.fail(ctxErr)
			}
			return c.fail(fmt.Errorf("read %s response: %w", req.Op, err))
		}
		if resp.ID != req.ID {
			c.logger.Warning("RemotePredictor", "discarding response for stale request", map[string]interface{}{
				"expected": req.ID,
				"got":      resp.ID,
			})
			continue
		}
		if !resp.OK {
			return fmt.Errorf("%w: %s: %s", ErrServer, req.Op, resp.Error)
		}
		done, err := handle(resp)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// single performs a request expecting exactly one response.
func (c *Client) single(ctx context.Context, req request) (response, error) {
	var out response
	err := c.call(ctx, req, func(resp response) (bool, error) {
		out = resp
		return true, nil
	})
	return out, err
}
