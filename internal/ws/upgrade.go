package ws

import (
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/lanthing-go/ltsignal/internal/codec"
)

// Subprotocol is the WebSocket subprotocol clients must negotiate.
const Subprotocol = "ltsignal.v1"

// UpgradeHandler returns an HTTP handler that upgrades connections to WebSocket.
func UpgradeHandler(hub *Hub, c *codec.Codec, router *Router, opts Options, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols: []string{Subprotocol},
		})
		if err != nil {
			log.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}

		// Verify subprotocol was negotiated.
		if conn.Subprotocol() != Subprotocol {
			conn.Close(websocket.StatusPolicyViolation, "unsupported subprotocol")
			return
		}

		id := connID()
		wc := NewConn(id, conn, hub, c, router, opts, log)

		log.Info("New WebSocket connection", zap.String("conn", id), zap.String("remote", r.RemoteAddr))

		// Run the connection (blocking).
		wc.Run(r.Context())
	}
}
