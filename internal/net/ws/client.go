package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"npc-director/server/internal/net/proto"
	"npc-director/server/internal/replica"
	"npc-director/server/internal/telemetry"
)

type ClientConfig struct {
	Logger telemetry.Logger
	Dialer *websocket.Dialer
	// OnFrame runs after each frame has been applied to the store.
	OnFrame func(frame replica.Frame)
}

// Client follows a replica feed and applies every frame to a store.
type Client struct {
	conn    *websocket.Conn
	store   *replica.Store
	logger  telemetry.Logger
	onFrame func(frame replica.Frame)

	writeMu sync.Mutex
	done    chan struct{}
	err     error
	close   sync.Once
}

// Dial connects to the feed at url and starts applying frames to store.
func Dial(ctx context.Context, url string, store *replica.Store, cfg ClientConfig) (*Client, error) {
	if store == nil {
		return nil, errors.New("ws: client requires a replica store")
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		store:   store,
		logger:  cfg.Logger,
		onFrame: cfg.OnFrame,
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.err = err
			}
			return
		}
		env, err := proto.DecodeEnvelope(payload)
		if err != nil {
			c.logf("[ws-client] discarding payload: %v", err)
			continue
		}
		if env.Type != proto.TypeFrame {
			continue
		}
		frame, err := proto.DecodeFrame(payload)
		if err != nil {
			c.logf("[ws-client] discarding frame: %v", err)
			continue
		}
		if err := c.store.Apply(frame); err != nil {
			if !errors.Is(err, replica.ErrStaleFrame) {
				c.logf("[ws-client] apply frame %d: %v", frame.Tick, err)
			}
			continue
		}
		if c.onFrame != nil {
			c.onFrame(frame)
		}
	}
}

// Send writes a command or heartbeat to the server.
func (c *Client) Send(msg proto.ClientMessage) error {
	if msg.Ver == 0 {
		msg.Ver = proto.Version
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ws: marshal message: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Done is closed when the read loop stops.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err blocks until the read loop stops and reports why. A clean close
// yields nil.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Close sends a close frame and waits for the read loop to stop.
func (c *Client) Close() error {
	c.close.Do(func() {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		select {
		case <-c.done:
		case <-time.After(writeWait):
		}
		c.conn.Close()
	})
	return nil
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
