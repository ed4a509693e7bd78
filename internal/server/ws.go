package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"seraph/internal/broadcast"
)

const wsWriteTimeout = 10 * time.Second

// wsSubscriber adapts one websocket connection to the broadcast hub. It owns
// the per-connection sequence counter; clients detect dropped messages by
// gaps in seq.
type wsSubscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
	seq  uint64
}

func (w *wsSubscriber) Send(msg broadcast.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	msg.Seq = w.seq
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteJSON(msg)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	sub := &wsSubscriber{conn: conn}
	s.hub.Subscribe(sub)
	s.logger.Info("websocket client connected")

	// Reads are only for liveness; the channel is push-only. The read loop
	// exits when the peer closes, which is when we unsubscribe.
	go func() {
		defer func() {
			s.hub.Unsubscribe(sub)
			_ = conn.Close()
			s.logger.Info("websocket client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
