package ws

import (
	"log/slog"
	"net/http"

	"chime-together/pkg/logattr"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser client connects cross-origin from the SPA.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades GET /ws?userId=<id> requests and registers the
// connection with the hub.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := r.URL.Query().Get("userId")
		if userId == "" {
			http.Error(w, "missing userId", http.StatusBadRequest)
			return
		}
		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", logattr.Error(err.Error()))
			return
		}
		c := &Conn{
			UserID: userId,
			WS:     wsConn,
			Out:    make(chan []byte, outboundQueueSize),
		}
		hub.Set(userId, c)
		logger.Info("user connected", logattr.UserId(userId))

		go writePump(c)
		go readPump(hub, c, logger)
	}
}

func writePump(c *Conn) {
	for data := range c.Out {
		if err := c.WS.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	c.WS.Close()
}

// readPump discards inbound frames (the push channel is one-way) and
// deregisters the connection on error or close.
func readPump(hub *Hub, c *Conn, logger *slog.Logger) {
	for {
		if _, _, err := c.WS.ReadMessage(); err != nil {
			break
		}
	}
	hub.Del(c.UserID, c)
	logger.Info("user disconnected", logattr.UserId(c.UserID))
}
