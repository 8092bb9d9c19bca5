package realtime

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cppla/fitquest/utils"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := false
	allowed := map[string]struct{}{}
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if allowAll || origin == "" {
				return true
			}
			_, ok := allowed[strings.TrimRight(origin, "/")]
			return ok
		},
	}
}

// ServeWS upgrades the request and runs the session until it disconnects.
// The connection starts unauthenticated; clients send an authenticate frame.
func ServeWS(hub *Hub, verify TokenVerifier, allowedOrigins []string) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(ctx *gin.Context) {
		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error
			utils.Sugar.Debugf("ws upgrade failed: %v", err)
			return
		}
		c := newClient(hub, conn, verify)
		if err := hub.Register(c); err != nil {
			c.close()
			return
		}
		utils.Sugar.Debugf("ws client=%s connected from %s", c.id, ctx.ClientIP())
		go c.writePump()
		go c.readPump()
	}
}
