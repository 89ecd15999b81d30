package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskly-api/subscription"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// streamChanges upgrades the connection and pushes one text frame per
// change event until the client goes away. The protocol is one-way:
// inbound frames are logged and otherwise ignored.
func streamChanges(hub *subscription.Hub, logger *log.Logger, allowedOrigins []string) echo.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		sub := hub.Register()
		slog := logger.WithField("subscriber", sub.ID)
		slog.Info("live-update subscriber connected")

		go func() {
			for msg := range sub.Messages() {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			conn.Close()
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			slog.Debugf("inbound frame: %s", msg)
		}

		hub.Unregister(sub)
		conn.Close()
		slog.Info("live-update subscriber disconnected")
		return nil
	}
}
