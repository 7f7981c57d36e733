package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-chatstream-be/internal/dto"
	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/internal/pkg/serverutils"
	internalWS "ai-chatstream-be/internal/websocket"
	"ai-chatstream-be/pkg/store"
	"ai-chatstream-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const handlerModule = "ChatSocketHandler"

// ChatSocketHandler upgrades the chat endpoints and runs the turn loop on
// each connection. Plain and grounded chat share the loop and differ only in
// the turn handler.
type ChatSocketHandler struct {
	hub       *internalWS.Hub
	chat      stream.TurnHandler
	rag       stream.TurnHandler
	idleWait  time.Duration
	writeWait time.Duration
	logger    logger.ILogger
}

func NewChatSocketHandler(
	hub *internalWS.Hub,
	chat stream.TurnHandler,
	rag stream.TurnHandler,
	idleWait, writeWait time.Duration,
	log logger.ILogger,
) *ChatSocketHandler {
	return &ChatSocketHandler{
		hub:       hub,
		chat:      chat,
		rag:       rag,
		idleWait:  idleWait,
		writeWait: writeWait,
		logger:    log,
	}
}

func (h *ChatSocketHandler) RegisterRoutes(router fiber.Router) {
	ws := router.Group("/ws")
	ws.Get("/chat", h.upgrade("chat", h.chat))
	ws.Get("/rag/chat_query", h.upgrade("rag", h.rag))
}

func (h *ChatSocketHandler) upgrade(kind string, turns stream.TurnHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return websocket.New(func(wsConn *websocket.Conn) {
			internalWS.ServeWs(h.hub, wsConn, h.writeWait, h.logger, func(conn *internalWS.Conn) {
				h.serve(kind, conn, turns)
			})
		})(c)
	}
}

func (h *ChatSocketHandler) serve(kind string, conn *internalWS.Conn, turns stream.TurnHandler) {
	h.logger.Info(handlerModule, "Chat session started", map[string]interface{}{
		"conn_id": conn.ID.String(),
		"kind":    kind,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := stream.ServeConnection(ctx, conn, DecodeChatRequest, turns, h.idleWait, h.logger)
	fields := map[string]interface{}{"conn_id": conn.ID.String(), "kind": kind}
	if err != nil && ctx.Err() == nil {
		fields["error"] = err.Error()
	}
	h.logger.Info(handlerModule, "Chat session ended", fields)
}

// DecodeChatRequest parses and validates one request frame.
func DecodeChatRequest(frame string) (store.TurnRequest, error) {
	var req dto.ChatRequest
	if err := json.Unmarshal([]byte(frame), &req); err != nil {
		return store.TurnRequest{}, fmt.Errorf("malformed request: %w", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return store.TurnRequest{}, err
	}
	return req.ToTurnRequest(), nil
}
