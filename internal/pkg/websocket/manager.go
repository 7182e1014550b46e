package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	jwtpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/jwt"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// Client is one authenticated websocket connection. Writes are serialized
// because gorilla connections allow a single concurrent writer.
type Client struct {
	UserID uuid.UUID
	Role   models.Role

	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
}

// Send writes an event with a JSON payload
func (c *Client) Send(event string, data interface{}) error {
	rawData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error marshaling message data: %w", err)
	}
	return c.write(models.WSMessage{Event: event, Data: rawData})
}

// SendError writes an error event
func (c *Client) SendError(code, message string) error {
	return c.Send(constants.EventError, models.WSErrorMessage{Code: code, Message: message})
}

func (c *Client) write(msg models.WSMessage) error {
	if c.conn == nil {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// ReadMessage blocks until the next client message arrives
func (c *Client) ReadMessage() (models.WSMessage, error) {
	var msg models.WSMessage
	err := c.conn.ReadJSON(&msg)
	return msg, err
}

// Manager authenticates, upgrades and tracks websocket connections
type Manager struct {
	sync.RWMutex
	clients      map[uuid.UUID]map[*Client]struct{}
	cfg          models.JWTConfig
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
}

// NewManager creates a new WebSocket manager
func NewManager(jwtConfig models.JWTConfig, gatewayConfig models.GatewayConfig) *Manager {
	writeTimeout := gatewayConfig.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Manager{
		clients:      make(map[uuid.UUID]map[*Client]struct{}),
		cfg:          jwtConfig,
		writeTimeout: writeTimeout,
		pingInterval: gatewayConfig.PingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection authenticates the caller, upgrades the request and runs
// handleClient until it returns. The client is tracked for the whole call.
func (m *Manager) HandleConnection(c echo.Context, handleClient func(*Client) error) error {
	claims, err := m.authenticate(c)
	if err != nil {
		return err
	}

	ws, err := m.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	client := &Client{UserID: claims.UserID, Role: claims.Role, conn: ws, writeTimeout: m.writeTimeout}
	m.AddClient(client)
	defer m.RemoveClient(client)

	if m.pingInterval > 0 {
		ws.SetReadDeadline(time.Now().Add(2 * m.pingInterval))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(2 * m.pingInterval))
		})
		stop := make(chan struct{})
		defer close(stop)
		go m.keepAlive(client, stop)
	}

	return handleClient(client)
}

func (m *Manager) keepAlive(client *Client, stop <-chan struct{}) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := client.ping(); err != nil {
				logger.Debug("Websocket ping failed",
					logger.UUID("user_id", client.UserID),
					logger.Err(err))
				return
			}
		}
	}
}

// authenticate accepts a bearer header or the access_token query parameter,
// which browsers use because they cannot set headers on websocket upgrades
func (m *Manager) authenticate(c echo.Context) (*jwtpkg.Claims, error) {
	token := c.QueryParam("access_token")
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}
		token = parts[1]
	}
	if token == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
	}

	claims, err := jwtpkg.ValidateToken(token, m.cfg.Secret)
	if err != nil {
		logger.Warn("Token validation failed", logger.Err(err))
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	return claims, nil
}

// AddClient tracks a connection; a user may hold several
func (m *Manager) AddClient(client *Client) {
	m.Lock()
	defer m.Unlock()
	conns, ok := m.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		m.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
}

// RemoveClient stops tracking a connection
func (m *Manager) RemoveClient(client *Client) {
	m.Lock()
	defer m.Unlock()
	conns := m.clients[client.UserID]
	delete(conns, client)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	}
}

// ConnectionCount returns how many connections userID holds
func (m *Manager) ConnectionCount(userID uuid.UUID) int {
	m.RLock()
	defer m.RUnlock()
	return len(m.clients[userID])
}
