package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024

	// Time allowed to send the close frame to a connection whose outbox overflowed.
	overflowCloseWait = time.Second
)

type sessionReadyPayload struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

func (h *httpHandler) handleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connectionID, err := h.ids.NewID()
	if err != nil {
		h.logger.Error("failed to issue connection id", zap.Error(err))
		_ = conn.Close()
		return
	}

	link, cleanup := h.hub.register(connectionID)
	color := h.coordinator.Connect(connectionID)
	h.hub.SendTo(connectionID, session.Message{
		Event:   eventSessionReady,
		Payload: sessionReadyPayload{ID: connectionID, Color: color},
	})
	h.logger.Info("connection opened", zap.String("connection_id", connectionID))

	ctx := context.WithoutCancel(c.Request.Context())
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, link, done)
	}()
	go h.closeOnOverflow(conn, link, done)

	h.readPump(ctx, conn, link)

	h.coordinator.Disconnect(ctx, connectionID)
	cleanup()
	close(done)
	<-writerDone
	_ = conn.Close()
	h.logger.Info("connection closed", zap.String("connection_id", connectionID))
}

func (h *httpHandler) readPump(ctx context.Context, conn *websocket.Conn, link *hubConnection) {
	connectionID := link.id
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("connection_id", connectionID), zap.Error(err))
			} else {
				h.logger.Debug("websocket closed", zap.String("connection_id", connectionID), zap.Error(err))
			}
			return
		}
		select {
		case <-link.overflow:
			return
		default:
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := h.dispatch(ctx, connectionID, frame); err != nil {
			h.logger.Warn("inbound event rejected", zap.String("connection_id", connectionID), zap.Error(err))
			h.hub.SendTo(connectionID, session.Message{
				Event:   eventError,
				Payload: gin.H{"error": errorCode(err)},
			})
		}
	}
}

// writePump is the only data writer of conn; closeOnOverflow sends nothing but a close frame.
func (h *httpHandler) writePump(conn *websocket.Conn, link *hubConnection, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-link.outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Debug("websocket write failed", zap.String("connection_id", link.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			h.flush(conn, link)
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// closeOnOverflow drops a connection that cannot keep up. The writer may be
// blocked on the socket, so the close frame goes out as a control message and
// the socket is closed underneath it; the read loop then runs the disconnect path.
func (h *httpHandler) closeOnOverflow(conn *websocket.Conn, link *hubConnection, done <-chan struct{}) {
	select {
	case <-link.overflow:
		h.logger.Warn("closing slow connection", zap.String("connection_id", link.id))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "outbox overflow"),
			time.Now().Add(overflowCloseWait))
		_ = conn.Close()
	case <-done:
	}
}

func (h *httpHandler) flush(conn *websocket.Conn, link *hubConnection) {
	for {
		select {
		case frame := <-link.outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (h *httpHandler) dispatch(ctx context.Context, connectionID string, frame []byte) error {
	envelope, err := decodeEnvelope(frame)
	if err != nil {
		return err
	}

	switch envelope.Event {
	case eventJoinRoom:
		roomID, err := decodeRoomID(envelope.Data)
		if err != nil {
			return err
		}
		h.coordinator.Join(ctx, connectionID, roomID)
	case eventLeaveRoom:
		h.coordinator.Leave(ctx, connectionID)
	case eventDrawingStep:
		stroke, err := decodeStroke(envelope.Data)
		if err != nil {
			return err
		}
		h.coordinator.DrawingStep(ctx, connectionID, stroke)
	case eventCursorMove:
		position, err := decodePoint(envelope.Data)
		if err != nil {
			return err
		}
		h.coordinator.MoveCursor(ctx, connectionID, position)
	case eventUndo:
		h.coordinator.Undo(ctx, connectionID)
	case eventRedo:
		h.coordinator.Redo(ctx, connectionID)
	case eventClearCanvas:
		h.coordinator.ClearCanvas(ctx, connectionID)
	default:
		return fmt.Errorf("%w: %q", errUnknownEvent, envelope.Event)
	}
	return nil
}

func originAllowed(allowedOrigins []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
