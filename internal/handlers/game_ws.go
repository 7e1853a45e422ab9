// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/lacosa/internal/broadcast"
	"github.com/jason-s-yu/lacosa/internal/game"
	"github.com/jason-s-yu/lacosa/internal/middleware"
	"github.com/sirupsen/logrus"
)

// GameMessage is an incoming WebSocket message.
type GameMessage struct {
	Type string `json:"type"`

	// Username names the seat for join_game, and the mover for game_move on a connection
	// that has no identity yet.
	Username string `json:"username,omitempty"`

	// Move is the game_move payload, e.g. {"type":"action","cardName":"Torcia"}.
	Move json.RawMessage `json:"move,omitempty"`
}

// wsConn is one client connection and the identity bound to it.
type wsConn struct {
	c         *websocket.Conn
	sessionID uuid.UUID
	sub       *broadcast.Subscription
	logger    *logrus.Entry
}

// GameWSHandler upgrades GET /api/games/{gameID}/ws. The connection subscribes to the session's
// events as the token's user (or a spectator), then reads join_game, start_game, game_move and ping.
// The subscription is taken before the initial state is read, so an event applied in between is
// delivered after the state message; clients drop events whose version the state already covers.
func (s *Server) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	viewer, ok := s.viewer(w, r, id)
	if !ok {
		return
	}

	sub := s.Hub.Subscribe(id, viewer)
	defer s.Hub.Unsubscribe(sub)

	view, err := s.Registry.GetView(r.Context(), id, viewer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.beforeAccept != nil {
		s.beforeAccept(id)
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: s.wsOriginPatterns(),
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error for session %s: %v", id, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != "game" {
		s.Logger.Warnf("Client for session %s connected with invalid subprotocol: %s", id, c.Subprotocol())
		c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &wsConn{
		c:         c,
		sessionID: id,
		sub:       sub,
		logger:    s.Logger.WithFields(logrus.Fields{"session_id": id, "remote": r.RemoteAddr}),
	}

	sendWsMessage(ctx, conn, map[string]interface{}{"type": "state", "state": view})
	go conn.writeEvents(ctx, cancel)

	err = s.readGameMessages(ctx, conn)
	cancel()
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
	c.Close(websocket.StatusNormalClosure, "")
}

// writeEvents forwards hub events to the client until the subscription ends. When the hub drops
// the subscription for falling behind, the connection is closed.
func (conn *wsConn) writeEvents(ctx context.Context, cancel context.CancelFunc) {
	for ev := range conn.sub.Events() {
		writeCtx, wcancel := context.WithTimeout(ctx, 5*time.Second)
		err := conn.c.Write(writeCtx, websocket.MessageText, game.EncodeEvent(ev))
		wcancel()
		if err != nil {
			conn.logger.WithError(err).Debug("failed to write event")
			cancel()
			return
		}
	}
	if ctx.Err() == nil {
		conn.logger.Warn("subscriber dropped for falling behind")
		conn.c.Close(SlowConsumerError, "too slow")
		cancel()
	}
}

// readGameMessages reads client messages until the connection closes and routes each one to
// the registry. A failed operation is reported to this client only.
func (s *Server) readGameMessages(ctx context.Context, conn *wsConn) error {
	for {
		msgType, data, err := conn.c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			conn.logger.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.logger.Warnf("Invalid JSON received: %v", err)
			sendWsError(ctx, conn, game.ErrMalformedRequest)
			continue
		}
		conn.logger.Debugf("Received '%s'", msg.Type)

		if err := s.handleGameMessage(ctx, conn, msg); err != nil {
			conn.logger.WithError(err).WithField("type", msg.Type).Info("message rejected")
			sendWsError(ctx, conn, err)
		}
	}
}

func (s *Server) handleGameMessage(ctx context.Context, conn *wsConn, msg GameMessage) error {
	user := s.Hub.Viewer(conn.sub)

	switch msg.Type {
	case "join_game":
		username := msg.Username
		if username == "" {
			username = user
		}
		if _, err := s.Registry.JoinSession(ctx, conn.sessionID, username); err != nil {
			return err
		}
		token, err := s.Signer.CreateToken(conn.sessionID, username)
		if err != nil {
			return err
		}
		s.Hub.SetViewer(conn.sub, username)
		sendWsMessage(ctx, conn, map[string]interface{}{"type": "token", "username": username, "token": token})

	case "start_game":
		if _, err := s.Registry.StartSession(ctx, conn.sessionID, user); err != nil {
			return err
		}

	case "game_move":
		mover := user
		if mover == "" {
			mover = msg.Username
		}
		m, err := game.DecodeMove(msg.Move)
		if err != nil {
			return err
		}
		if _, err := s.Registry.SubmitMove(ctx, conn.sessionID, mover, m); err != nil {
			return err
		}

	case "ping":
		sendWsMessage(ctx, conn, map[string]string{"type": "pong"})

	default:
		return fmt.Errorf("%w: unknown message type %q", game.ErrMalformedRequest, msg.Type)
	}
	return nil
}

// sendWsMessage marshals a message and sends it to the WebSocket client with a write timeout.
func sendWsMessage(ctx context.Context, conn *wsConn, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		conn.logger.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		conn.logger.WithError(err).Debug("Error writing WebSocket message")
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, conn *wsConn, err error) {
	kind := game.KindOf(err)
	sendWsMessage(ctx, conn, map[string]interface{}{
		"type":    "error",
		"message": errorMessage(err, kind),
		"code":    kind.String(),
	})
}
