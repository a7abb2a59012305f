package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
)

// createWebsocketHandler streams register events as JSON text messages until
// the client goes away.
func createWebsocketHandler(h *Harness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Subscribe before the handshake so the client sees every event
		// after its dial returns.
		unsub, ch := h.Subscribe()
		defer unsub()

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			http.Error(w, fmt.Sprintf("websocket upgrade failed: %s", err), http.StatusInternalServerError)
			return
		}
		defer c.Close(websocket.StatusInternalError, "event stream ended")

		// The client never sends anything; CloseRead notices it leaving.
		ctx := c.CloseRead(r.Context())

		for {
			select {
			case <-ctx.Done():
				c.Close(websocket.StatusNormalClosure, "")
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				js, err := json.Marshal(e)
				if err != nil {
					log.Err(err).Msg("Failed to marshal event payload for websocket")
					continue
				}
				if err := writeTimeout(ctx, 5*time.Second, c, js); err != nil {
					log.Debug().Err(err).Msg("Websocket write failed, closing")
					return
				}
			}
		}
	}
}

func writeTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.Write(ctx, websocket.MessageText, msg)
}
