package realtime

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Authenticator extracts user IDs from Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Access re-checks board rights before a connection may join a board channel.
type Access interface {
	CanAccess(ctx context.Context, boardID, actor string) (bool, error)
}

type clientMessage struct {
	Action  string `json:"action"`
	BoardID string `json:"boardId"`
}

type serverMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId,omitempty"`
	BoardID      string `json:"boardId,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Handler upgrades /ws requests and relays board events to the client.
// Browsers cannot set headers on WebSocket dials, so a token query parameter
// doubles as the Authorization header.
func Handler(hub *Hub, auth Authenticator, access Access, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if token := c.QueryParam("token"); authHeader == "" && token != "" {
			authHeader = "Bearer " + token
		}
		userID, err := auth.UserIDFromAuthHeader(authHeader)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		ws, err := websocket.Accept(c.Response(), c.Request(), nil)
		if err != nil {
			return nil // Accept already wrote the handshake failure
		}

		conn := hub.Register()
		defer hub.Drop(conn)

		ctx, cancel := context.WithCancel(c.Request().Context())
		defer cancel()

		// Single writer: the welcome frame, join/leave acks and board events
		// all go through the outbound loop below or this handshake write.
		if err := wsjson.Write(ctx, ws, serverMessage{Type: "welcome", ConnectionID: conn.ID}); err != nil {
			_ = ws.Close(websocket.StatusInternalError, "handshake write failed")
			return nil
		}

		acks := make(chan serverMessage, 8)
		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-acks:
					if !ok {
						return
					}
					if err := wsjson.Write(ctx, ws, msg); err != nil {
						cancel()
						return
					}
				case ev, ok := <-conn.Events():
					if !ok {
						return
					}
					if err := wsjson.Write(ctx, ws, ev); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			var msg clientMessage
			if err := wsjson.Read(ctx, ws, &msg); err != nil {
				break
			}
			switch msg.Action {
			case "join":
				ok, err := access.CanAccess(ctx, msg.BoardID, userID)
				if err != nil {
					logger.WithFields(log.Fields{"board": msg.BoardID, "user": userID}).Errorf("access check: %v", err)
					sendAck(ctx, acks, serverMessage{Type: "error", BoardID: msg.BoardID, Error: "access check failed"})
					continue
				}
				if !ok {
					sendAck(ctx, acks, serverMessage{Type: "error", BoardID: msg.BoardID, Error: "access denied"})
					continue
				}
				hub.Join(conn, msg.BoardID)
				sendAck(ctx, acks, serverMessage{Type: "joined", BoardID: msg.BoardID})
			case "leave":
				hub.Leave(conn, msg.BoardID)
				sendAck(ctx, acks, serverMessage{Type: "left", BoardID: msg.BoardID})
			default:
				sendAck(ctx, acks, serverMessage{Type: "error", Error: "unknown action"})
			}
		}

		cancel()
		<-writeDone
		_ = ws.Close(websocket.StatusNormalClosure, "bye")
		return nil
	}
}

func sendAck(ctx context.Context, acks chan<- serverMessage, msg serverMessage) {
	select {
	case acks <- msg:
	case <-ctx.Done():
	}
}
