package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// JSONPublisher publishes a value encoded as JSON
type JSONPublisher interface {
	PublishJSON(ctx context.Context, subject string, v interface{}) error
}

// Client wraps a NATS connection and its JetStream context
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream

	mu                sync.Mutex
	nextHandlerID     int
	reconnectHandlers map[int]func()
}

// NewClient connects to NATS with automatic reconnects enabled
func NewClient(cfg models.NATSConfig) (*Client, error) {
	c := &Client{reconnectHandlers: make(map[int]func())}

	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", logger.Err(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", logger.String("url", nc.ConnectedUrl()))
			c.fireReconnect()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS server: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c.conn = conn
	c.js = js
	return c, nil
}

// GetConn returns the underlying connection
func (c *Client) GetConn() *nats.Conn {
	return c.conn
}

// IsConnected reports whether the connection is currently up
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// PublishJSON encodes v and publishes it through JetStream so it is persisted
// in the stream owning subject; core subscribers receive it as well.
func (c *Client) PublishJSON(ctx context.Context, subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe creates a core (at-most-once) subscription
func (c *Client) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// OnReconnect registers fn to run after every reconnect. The returned
// function unregisters it.
func (c *Client) OnReconnect(fn func()) func() {
	c.mu.Lock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.reconnectHandlers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.reconnectHandlers, id)
		c.mu.Unlock()
	}
}

func (c *Client) fireReconnect() {
	c.mu.Lock()
	handlers := make([]func(), 0, len(c.reconnectHandlers))
	for _, fn := range c.reconnectHandlers {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		go fn()
	}
}

// EnsureStreams creates or updates the given streams
func (c *Client) EnsureStreams(ctx context.Context, configs ...StreamConfig) error {
	for _, cfg := range configs {
		if _, err := c.js.CreateOrUpdateStream(ctx, cfg.toJetStream()); err != nil {
			return fmt.Errorf("failed to ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// Close drains subscriptions and closes the connection
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
