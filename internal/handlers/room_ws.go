// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/bidblitz/bidblitz/internal/auth"
	"github.com/bidblitz/bidblitz/internal/middleware"
	"github.com/bidblitz/bidblitz/internal/room"
	"github.com/bidblitz/bidblitz/internal/session"
)

// RoomWSHandler upgrades a credentialed client to the room websocket and
// runs its read/write pumps until disconnect.
func RoomWSHandler(logger *logrus.Logger, reg *session.Registry, issuer *auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"auction"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "auction" {
			c.Close(BadSubprotocolError, "client must speak the auction subprotocol")
			return
		}

		claims, err := issuer.FromRequest(r)
		if err != nil {
			logger.Warnf("websocket rejected: %v", err)
			c.Close(InvalidAuthTokenError, "invalid or missing credential")
			return
		}

		rm, ok := reg.Get(claims.RoomID)
		if !ok {
			logger.Warnf("websocket rejected: room %s not found", claims.RoomID)
			c.Close(InvalidRoomIDError, "room does not exist")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := room.NewConn(cancel)

		if !rm.Admit(conn, room.Participant{
			Username: claims.Username,
			Role:     claims.Role,
		}) {
			c.Close(InvalidRoomIDError, "room is shutting down")
			cancel()
			return
		}
		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)
		logger.WithFields(logrus.Fields{
			"room": claims.RoomID, "username": claims.Username, "role": claims.Role,
		}).Info("participant connected")

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, rm, conn, logger)

		rm.Remove(conn.ID)
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
	}
}

// readPump decodes inbound command messages and routes them into the room.
// It blocks until the connection closes or the context is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, rm *room.Room, conn *room.Conn, logger *logrus.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway ||
				strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			conn.WriteError("invalid JSON")
			continue
		}
		msgType, _ := packet["type"].(string)
		if msgType == "" {
			conn.WriteError("missing message type")
			continue
		}

		rm.Dispatch(conn.ID, msgType, packet)
	}
}

// writePump drains the connection's out channel onto the wire and pings
// periodically so dead peers are detected.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing msg: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
