package translate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

type outFrame struct {
	kind int // websocket.BinaryMessage or websocket.TextMessage
	data []byte
}

// wsConn wraps one websocket connection with a buffered send channel.
// Full buffer means drop, not block: the pipeline is loss-tolerant.
type wsConn struct {
	conn *websocket.Conn
	send chan outFrame

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn, send: make(chan outFrame, 32)}
}

func (c *wsConn) trySend(kind int, data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- outFrame{kind: kind, data: data}:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *wsConn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "translate").Msg("writePump ctx done")
			return
		case f, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "translate").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
				log.Error().Err(err).Str("module", "translate").Msg("writePump write error")
				return
			}
		}
	}
}
