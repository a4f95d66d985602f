// Package events streams lifecycle transitions to the browser over SSE or
// WebSocket.
package events

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	eventservice "github.com/zhouzirui/lexdesk/backend/internal/service/events"
	"github.com/zhouzirui/lexdesk/backend/internal/service/lifecycle"
	"github.com/zhouzirui/lexdesk/backend/pkg/utils"
)

const (
	heartbeatInterval = 15 * time.Second
	pongWait          = 60 * time.Second
	writeWait         = 10 * time.Second
)

// Handler 推送某个功能的状态变化
type Handler struct {
	feature  string
	broker   *eventservice.Broker
	snapshot func() lifecycle.Snapshot
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// New 创建事件处理器。checkOrigin 为空时允许所有来源。
func New(feature string, broker *eventservice.Broker, snapshot func() lifecycle.Snapshot, checkOrigin func(*http.Request) bool, logger zerolog.Logger) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		feature:  feature,
		broker:   broker,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.With().Str("component", "events").Str("feature", feature).Logger(),
	}
}

// RegisterRoutes 注册事件相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleSSE)
	r.Get("/ws", h.handleWebSocket)
}

// handleSSE 以 Server-Sent Events 推送状态
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsubscribe := h.broker.Subscribe(h.feature)
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, "state", h.snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "transition", e); err != nil {
				return
			}
		}
	}
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket 以 WebSocket 推送状态；客户端消息仅用于保活。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := h.broker.Subscribe(h.feature)
	defer unsubscribe()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// 读循环只负责处理 close/pong，连接断开时取消写循环。
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug().Err(err).Msg("websocket read error")
				}
				return
			}
		}
	}()

	if err := h.write(conn, "state", h.snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := h.write(conn, "transition", e); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, typ string, data any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(outgoingMessage{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()})
}
