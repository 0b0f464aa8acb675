package http

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
)

// Events streams audit events to a moderator over a websocket.
// GET /api/admin/events
func (h *Handlers) Events(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ch, cancel := h.bus.Subscribe()
	defer cancel()

	ctx := c.Request.Context()

	// Surface client disconnects while we block on the event channel.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			if err := wsjson.Write(ctx, conn, evt); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.log.Debug().Err(err).Msg("ws write failed")
				}
				return
			}
		case <-readDone:
			conn.Close(websocket.StatusNormalClosure, "client closed")
			return
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
	}
}
