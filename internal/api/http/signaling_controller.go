package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/immxrtalbeast/callrelay/internal/api/ws"
	"github.com/immxrtalbeast/callrelay/internal/service"
	"github.com/immxrtalbeast/callrelay/lib/logger/sl"
)

type SignalingController struct {
	hub       *ws.Hub
	signaling service.SignalingInteractor
	log       *slog.Logger
	upgrader  websocket.Upgrader
}

func NewSignalingController(hub *ws.Hub, signaling service.SignalingInteractor, allowedOrigins []string, log *slog.Logger) *SignalingController {
	if log == nil {
		log = slog.Default()
	}
	return &SignalingController{
		hub:       hub,
		signaling: signaling,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// Connect upgrades the request and blocks for the lifetime of the socket.
func (c *SignalingController) Connect(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Info("failed to upgrade connection", sl.Err(err))
		return
	}

	c.hub.Serve(context.Background(), conn, c.signaling)
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
