// Package ws adapts gorilla/websocket connections to the signaling service:
// it assigns endpoint ids, decodes inbound event frames and delivers outbound
// events without blocking the caller.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/immxrtalbeast/callrelay/internal/config"
	"github.com/immxrtalbeast/callrelay/internal/domain"
	"github.com/immxrtalbeast/callrelay/lib/logger/sl"
)

var (
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrEndpointClosed   = errors.New("endpoint closed")
	ErrQueueFull        = errors.New("send queue full")
)

const reasonShutdown = "server shutting down"

// Handler receives connection lifecycle and inbound events.
type Handler interface {
	Connect(endpoint domain.EndpointID)
	HandleEvent(ctx context.Context, endpoint domain.EndpointID, event domain.EventName, data json.RawMessage) error
	Disconnect(endpoint domain.EndpointID)
}

type Hub struct {
	cfg config.SignalingConfig
	log *slog.Logger

	mu    sync.RWMutex
	conns map[domain.EndpointID]*Conn
}

func NewHub(cfg config.SignalingConfig, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		cfg:   cfg.WithDefaults(),
		log:   log,
		conns: make(map[domain.EndpointID]*Conn),
	}
}

// Serve runs the read loop for socket until it closes. handler.Disconnect is
// called exactly once when the loop ends.
func (h *Hub) Serve(ctx context.Context, socket *websocket.Conn, handler Handler) {
	const op = "ws.hub.serve"

	conn := newConn(socket, h.cfg.SendQueueSize)
	log := h.log.With(slog.String("op", op), slog.String("endpoint", string(conn.ID)))

	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.mu.Unlock()

	go h.writePump(conn)

	log.Info("new connection", slog.String("remote_addr", socket.RemoteAddr().String()))
	handler.Connect(conn.ID)

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn.ID)
		h.mu.Unlock()

		conn.shutdown()
		handler.Disconnect(conn.ID)
		log.Info("connection closed", slog.Duration("connected_for", time.Since(conn.ConnectedAt)))
	}()

	socket.SetReadLimit(h.cfg.ReadLimitBytes)
	_ = socket.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		msgType, msg, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !conn.closed() {
				log.Info("read failed", sl.Err(err))
			}
			return
		}
		_ = socket.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		if msgType != websocket.TextMessage {
			h.sendError(conn.ID, "expected text message")
			continue
		}

		var envelope domain.Envelope
		if err := json.Unmarshal(msg, &envelope); err != nil || envelope.Event == "" {
			log.Debug("invalid frame", slog.Int("bytes", len(msg)))
			h.sendError(conn.ID, "invalid message")
			continue
		}

		if err := handler.HandleEvent(ctx, conn.ID, envelope.Event, envelope.Data); err != nil {
			log.Info("event rejected", slog.String("event", string(envelope.Event)), sl.Err(err))
			h.sendError(conn.ID, err.Error())
		}
	}
}

// Send queues an event for endpoint. It never blocks; a full queue drops the
// event and reports ErrQueueFull.
func (h *Hub) Send(endpoint domain.EndpointID, event domain.EventName, payload any) error {
	const op = "ws.hub.send"

	conn, ok := h.get(endpoint)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrEndpointNotFound)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg, err := json.Marshal(domain.Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := conn.enqueue(frame{data: msg}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Disconnect closes endpoint after the events already queued for it.
func (h *Hub) Disconnect(endpoint domain.EndpointID, reason string) {
	conn, ok := h.get(endpoint)
	if !ok {
		return
	}
	h.closeConn(conn, websocket.CloseNormalClosure, reason)
}

// Close disconnects every endpoint.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.closeConn(conn, websocket.CloseGoingAway, reasonShutdown)
	}
	h.log.Info("all connections closed", slog.Int("count", len(conns)))
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) closeConn(conn *Conn, code int, reason string) {
	if err := conn.enqueue(frame{close: true, code: code, reason: reason}); err != nil {
		conn.shutdown()
	}
}

func (h *Hub) get(endpoint domain.EndpointID) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[endpoint]
	return conn, ok
}

func (h *Hub) sendError(endpoint domain.EndpointID, message string) {
	if err := h.Send(endpoint, domain.EventError, domain.ErrorPayload{Error: message}); err != nil {
		h.log.Debug("failed to send error event", slog.String("endpoint", string(endpoint)), sl.Err(err))
	}
}

func (h *Hub) writePump(conn *Conn) {
	ticker := time.NewTicker(h.cfg.PingPeriod())
	defer ticker.Stop()

	for {
		select {
		case f := <-conn.events:
			if f.close {
				writeClose(conn.socket, f.code, f.reason, h.cfg.WriteWait)
				conn.shutdown()
				return
			}
			_ = conn.socket.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := conn.socket.WriteMessage(websocket.TextMessage, f.data); err != nil {
				h.log.Debug("write failed", slog.String("endpoint", string(conn.ID)), sl.Err(err))
				conn.shutdown()
				return
			}
		case <-ticker.C:
			if err := conn.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteWait)); err != nil {
				conn.shutdown()
				return
			}
		case <-conn.done:
			return
		}
	}
}

func writeClose(socket *websocket.Conn, code int, reason string, wait time.Duration) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wait))
}
