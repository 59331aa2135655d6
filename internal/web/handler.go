package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studentattendance/internal/attendance"
	"studentattendance/internal/auth"
	"studentattendance/internal/session"
	"studentattendance/internal/view"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handler serves the attendance pages, the session stream and the JSON API.
type Handler struct {
	sessions *session.Manager
	provider auth.Provider
	svc      *attendance.Service
	health   map[string]HealthCheck
	log      *zap.Logger
}

// New creates a handler. health may be empty.
func New(sessions *session.Manager, provider auth.Provider, svc *attendance.Service, health map[string]HealthCheck, log *zap.Logger) *Handler {
	return &Handler{sessions: sessions, provider: provider, svc: svc, health: health, log: log}
}

// controller builds the per-request view state from the browser session.
func (h *Handler) controller(c *gin.Context) (*view.Controller, *session.Handle) {
	sh := h.sessions.Load(c.Request.Context(), c.Request)
	ctl := view.New(h.provider, h.svc, sh, h.log)
	p := sh.Prefs()
	ctl.Restore(p.View, attendance.Division(p.Division), p.ShowEntries, p.Enrollment)
	return ctl, sh
}

// persist writes the UI state back to the cookie. It must run before the body is written.
func (h *Handler) persist(c *gin.Context, ctl *view.Controller, sh *session.Handle) {
	st := ctl.State
	sh.SetPrefs(session.Prefs{
		View:        st.View,
		Division:    string(st.Division),
		ShowEntries: st.ShowEntries,
		Enrollment:  st.Enrollment,
	})
	if err := sh.Save(c.Request, c.Writer); err != nil {
		h.log.Error("save session cookie failed", zap.Error(err))
	}
}

// render writes the page for the current state.
func (h *Handler) render(c *gin.Context, status int, ctl *view.Controller, sh *session.Handle) {
	h.persist(c, ctl, sh)
	c.HTML(status, "index.html", ctl.State)
}

// redirect carries the notices to the next page load and redirects home.
func (h *Handler) redirect(c *gin.Context, ctl *view.Controller, sh *session.Handle) {
	for _, n := range ctl.State.Notices {
		sh.AddFlash(session.Flash{Kind: n.Kind, Message: n.Message})
	}
	h.persist(c, ctl, sh)
	c.Redirect(http.StatusSeeOther, "/")
}

// Healthz reports the health of every configured dependency.
func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	checks := make(gin.H, len(h.health))
	for name, check := range h.health {
		if err := check(c.Request.Context()); err != nil {
			h.log.Warn("health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = false
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = true
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
