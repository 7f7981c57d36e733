package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/stream"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	defaultWriteWait = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 1 << 20
	inboundBuffer    = 64
)

// socket is the part of *websocket.Conn a Conn drives.
type socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Conn adapts one websocket connection to stream.EventChannel. A read pump
// owns the socket reads and queues text frames, so a receive timeout never
// drops a frame.
type Conn struct {
	ID uuid.UUID

	ws        socket
	writeWait time.Duration
	log       logger.ILogger

	writeMu sync.Mutex

	inbound   chan string
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(ws socket, writeWait time.Duration, log logger.ILogger) *Conn {
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	return &Conn{
		ID:        uuid.New(),
		ws:        ws,
		writeWait: writeWait,
		log:       log,
		inbound:   make(chan string, inboundBuffer),
		done:      make(chan struct{}),
	}
}

// Start launches the read and ping pumps. They stop when the peer goes away
// or Close is called.
func (c *Conn) Start() {
	go c.readPump()
	go c.pingPump()
}

func (c *Conn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ChatSocket", "Unexpected close", map[string]interface{}{
					"conn_id": c.ID.String(),
					"error":   err.Error(),
				})
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.inbound <- string(data):
		case <-c.done:
			return
		}
	}
}

func (c *Conn) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Conn) Send(ctx context.Context, frame string) error {
	select {
	case <-c.done:
		return stream.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := c.write(websocket.TextMessage, []byte(frame)); err != nil {
		c.Close()
		return errors.Join(stream.ErrChannelClosed, err)
	}
	return nil
}

func (c *Conn) ReceiveWithTimeout(ctx context.Context, d time.Duration) (string, error) {
	// Frames queued before a disconnect are still delivered.
	select {
	case frame := <-c.inbound:
		return frame, nil
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case frame := <-c.inbound:
		return frame, nil
	case <-c.done:
		select {
		case frame := <-c.inbound:
			return frame, nil
		default:
			return "", stream.ErrChannelClosed
		}
	case <-timer.C:
		return "", stream.ErrReceiveTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Done is closed once the connection is gone.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and releases the socket. It is safe to call
// more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.ws.Close()
	})
}
