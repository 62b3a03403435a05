package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/homeledger/internal/auth"
)

// HandleWebSocket upgrades the request and streams change messages for
// the {group} path segment until the connection closes. The route must sit
// behind middleware that sets the actor.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := r.PathValue("group")
		actor := auth.Actor(r.Context())
		if group == "" || actor == "" {
			http.Error(w, "group and actor are required", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // the UI may be served from another origin
		})
		if err != nil {
			hub.logger.Error("accept websocket", "group_id", group, "error", err)
			return
		}

		hub.logger.Debug("client connected", "group_id", group, "actor", actor)
		NewClient(hub, conn, group, actor).Run(r.Context())
	}
}
