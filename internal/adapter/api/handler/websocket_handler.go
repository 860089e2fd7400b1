package handler

import (
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"wayfarer/internal/realtime"
	"wayfarer/pkg/errors"
	"wayfarer/pkg/logger"
)

type WebSocketHandler struct {
	manager *realtime.Manager
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Restrict this in production
	},
}

func NewWebSocketHandler(manager *realtime.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
	}
}

// HandleWebSocket upgrades the request and hands the socket to the manager.
// The credential arrives as a ?token= query param since browsers cannot set
// headers on websocket upgrades; a Bearer header works too for other clients.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client, err := h.manager.Connect(c.Request().Context(), conn, token)
	if err != nil {
		// Already upgraded; the rejection has to travel over the socket.
		msg := gorillaws.FormatCloseMessage(gorillaws.ClosePolicyViolation, errors.MessageOf(err))
		conn.WriteMessage(gorillaws.CloseMessage, msg)
		conn.Close()
		logger.Warn("Rejected websocket connection: %v", err)
		return nil
	}

	h.manager.Serve(client)
	return nil
}
