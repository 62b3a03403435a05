package websocket

import (
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Stream upgrades the request and writes each value received from values
// as a JSON message. It blocks until values closes or the client goes
// away; the caller cancels whatever feeds values once it returns.
func Stream[T any](w http.ResponseWriter, r *http.Request, values <-chan T, logger *slog.Logger) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true, // the UI may be served from another origin
	})
	if err != nil {
		logger.Error("accept websocket", "path", r.URL.Path, "error", err)
		return
	}
	defer conn.CloseNow()

	// The stream is one-way; CloseRead handles control frames and reports
	// the client leaving through ctx.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-values:
			if !ok {
				conn.Close(ws.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, v); err != nil {
				logger.Debug("stream write", "path", r.URL.Path, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
