package web

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const keepAlive = 25 * time.Second

// SessionEvents streams the browser's session changes as Server-Sent Events.
// The page reloads when it sees a sign-in or sign-out from another tab.
func (h *Handler) SessionEvents(c *gin.Context) {
	ctx := c.Request.Context()
	sh := h.sessions.Load(ctx, c.Request)
	if err := sh.Save(c.Request, c.Writer); err != nil {
		h.log.Error("save session cookie failed", zap.Error(err))
	}

	ch, err := h.sessions.Subscribe(ctx, sh.Browser())
	if err != nil {
		h.log.Warn("subscribe to session events failed", zap.Error(err))
		c.Status(http.StatusServiceUnavailable)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("session", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}
