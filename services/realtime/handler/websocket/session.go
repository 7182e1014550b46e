package websocket

import (
	"context"
	"encoding/json"
	"errors"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	wspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/websocket"
	"github.com/piresc/nebengjek-dispatch/services/realtime"
)

// SessionHandler binds each websocket connection to a synchronizer session
type SessionHandler struct {
	manager   *wspkg.Manager
	sessionUC realtime.SessionUC
	logger    *logger.ZapLogger
}

// NewSessionHandler creates the websocket entry point of the gateway
func NewSessionHandler(manager *wspkg.Manager, sessionUC realtime.SessionUC, log *logger.ZapLogger) *SessionHandler {
	return &SessionHandler{
		manager:   manager,
		sessionUC: sessionUC,
		logger:    log.Named("ws"),
	}
}

// clientNotifier pushes snapshots to one connection
type clientNotifier struct {
	client *wspkg.Client
}

func (n clientNotifier) Notify(snapshot models.SessionSnapshot) error {
	return n.client.Send(constants.EventSnapshot, snapshot)
}

// HandleWebSocket upgrades the request and serves the session until the
// client disconnects
func (h *SessionHandler) HandleWebSocket(c echo.Context) error {
	return h.manager.HandleConnection(c, func(client *wspkg.Client) error {
		return h.serve(c.Request().Context(), client)
	})
}

func (h *SessionHandler) serve(ctx context.Context, client *wspkg.Client) error {
	log := h.logger.With(logger.UUID("user_id", client.UserID), logger.String("role", string(client.Role)))

	session, err := h.sessionUC.Open(ctx, client.UserID, client.Role, clientNotifier{client: client})
	if err != nil {
		log.Warn("Failed to open session", logger.Err(err))
		_ = client.SendError(constants.ErrorCodeInvalidRequest, err.Error())
		return nil
	}
	defer session.Close()
	log.Info("Websocket session opened")

	for {
		msg, err := client.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure) {
				log.Warn("Websocket closed unexpectedly", logger.Err(err))
			} else {
				log.Info("Websocket session closed")
			}
			return nil
		}
		h.handleMessage(ctx, client, session, msg, log)
	}
}

func (h *SessionHandler) handleMessage(ctx context.Context, client *wspkg.Client, session realtime.Session, msg models.WSMessage, log *logger.ZapLogger) {
	var err error
	switch msg.Event {
	case constants.EventSelectRide:
		var cmd models.SelectRideCommand
		if err = decode(msg.Data, &cmd); err == nil {
			err = session.Select(cmd.RideID)
		}
	case constants.EventViewChat:
		var cmd models.ViewChatCommand
		if err = decode(msg.Data, &cmd); err == nil {
			session.MarkViewed(ctx, cmd.RideID)
		}
	case constants.EventResync:
		session.Reconcile(ctx)
	case constants.EventPing:
		err = client.Send(constants.EventPong, nil)
	default:
		_ = client.SendError(constants.ErrorCodeUnknownEvent, "Unknown event: "+msg.Event)
		return
	}

	if err == nil {
		return
	}
	code := constants.ErrorCodeInvalidRequest
	if errors.Is(err, errInvalidMessage) {
		code = constants.ErrorCodeInvalidMessage
	}
	log.Debug("Websocket command rejected",
		logger.String("event", msg.Event),
		logger.Err(err))
	_ = client.SendError(code, err.Error())
}

var errInvalidMessage = errors.New("invalid message payload")

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return errInvalidMessage
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errInvalidMessage
	}
	return nil
}
