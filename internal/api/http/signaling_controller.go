package http

import (
	"log/slog"
	"net/http"

	"github.com/apmvoice/peerlink/internal/signaling"
	"github.com/apmvoice/peerlink/lib/logger/sl"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type SignalingController struct {
	hub      *signaling.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewSignalingController(hub *signaling.Hub, log *slog.Logger) *SignalingController {
	if log == nil {
		log = slog.Default()
	}
	return &SignalingController{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeWS upgrades the request and hands the connection to the hub.
// The write pump runs in its own goroutine; the read pump runs on the
// handler goroutine and returns when the connection dies.
func (c *SignalingController) ServeWS(ctx *gin.Context) {
	socket, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	conn := c.hub.Connect(socket)

	go conn.WritePump()
	conn.ReadPump()
}
