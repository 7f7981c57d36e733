package websocket

import (
	"time"

	"ai-chatstream-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

// ServeWs wraps an upgraded connection in a Conn, registers it on the hub and
// runs serve on the handler goroutine. The connection is closed and
// unregistered when serve returns.
func ServeWs(hub *Hub, c *websocket.Conn, writeWait time.Duration, log logger.ILogger, serve func(*Conn)) {
	serveSocket(hub, c, writeWait, log, serve)
}

func serveSocket(hub *Hub, ws socket, writeWait time.Duration, log logger.ILogger, serve func(*Conn)) {
	conn := NewConn(ws, writeWait, log)
	hub.Register(conn)
	defer hub.Unregister(conn)
	defer conn.Close()

	conn.Start()
	serve(conn)
}
