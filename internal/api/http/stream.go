package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamReadLimit  = MaxTextLength + 1024
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware governs origins
	},
}

// StreamMessage is a client frame on the stream endpoint
type StreamMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Stream upgrades to a WebSocket and processes one record per "process"
// frame. Frames are handled in order.
func (h *Handlers) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	ctx := c.Request.Context()

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(conn, done)

	h.send(conn, gin.H{
		"type":    "system",
		"message": "connected",
		"modules": h.orch.Modules(),
	})

	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "process":
			text := h.cleanText(msg.Text)
			if text == "" {
				h.sendError(conn, "text is empty")
				continue
			}
			res, err := h.orch.Process(ctx, text)
			if res == nil {
				h.sendError(conn, err.Error())
				continue
			}
			h.send(conn, gin.H{"type": "result", "result": NewRecordResponse(res)})
		case "ping":
			h.send(conn, gin.H{"type": "pong"})
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

// keepAlive pings the peer so dead connections hit the read deadline
func (h *Handlers) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handlers) send(conn *websocket.Conn, msg gin.H) {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *Handlers) sendError(conn *websocket.Conn, message string) {
	h.send(conn, gin.H{"type": "error", "message": message})
}
