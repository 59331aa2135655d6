package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studentattendance/internal/attendance"
	"studentattendance/internal/session"
	"studentattendance/internal/view"
)

// MsgTooManyAttempts is flashed when the auth forms are rate limited.
const MsgTooManyAttempts = "Too many attempts, please try again later"

// Index renders the auth forms or the attendance form.
func (h *Handler) Index(c *gin.Context) {
	ctl, sh := h.controller(c)
	for _, f := range sh.Flashes() {
		ctl.AddNotice(view.Notice{Kind: f.Kind, Message: f.Message})
	}
	ctl.Render(c.Request.Context())
	h.render(c, http.StatusOK, ctl, sh)
}

// Login signs in with the posted credentials.
func (h *Handler) Login(c *gin.Context) {
	ctl, sh := h.controller(c)
	ctl.Login(c.Request.Context(), c.PostForm("email"), c.PostForm("password"))
	h.redirect(c, ctl, sh)
}

// Register creates an account from the posted credentials.
func (h *Handler) Register(c *gin.Context) {
	ctl, sh := h.controller(c)
	ctl.Register(c.Request.Context(), c.PostForm("email"), c.PostForm("password"))
	h.redirect(c, ctl, sh)
}

// Logout signs out and returns to the login form.
func (h *Handler) Logout(c *gin.Context) {
	ctl, sh := h.controller(c)
	ctl.Logout(c.Request.Context())
	h.redirect(c, ctl, sh)
}

// SwitchView toggles between the login and register forms.
func (h *Handler) SwitchView(c *gin.Context) {
	ctl, sh := h.controller(c)
	if c.PostForm("view") == view.ViewRegister {
		ctl.ShowRegister()
	} else {
		ctl.ShowLogin()
	}
	h.redirect(c, ctl, sh)
}

// Division changes the selected division and renders its entries.
func (h *Handler) Division(c *gin.Context) {
	ctl, sh := h.controller(c)
	ctl.SetEnrollment(c.PostForm("enrollment"))
	ctl.SetDivision(c.Request.Context(), attendance.Division(c.PostForm("division")))
	h.render(c, http.StatusOK, ctl, sh)
}

// Mark records one attendance entry in the division posted with the form.
// The cookie only remembers the last selection and may belong to another tab.
func (h *Handler) Mark(c *gin.Context) {
	ctl, sh := h.controller(c)
	ctl.SetEnrollment(c.PostForm("enrollment"))
	if d := c.PostForm("division"); d != "" && !ctl.SelectDivision(attendance.Division(d)) {
		ctl.AddNotice(view.Notice{Kind: view.KindError, Message: view.MsgMarkFailed})
		h.render(c, http.StatusBadRequest, ctl, sh)
		return
	}
	raw := c.PostForm("status")
	status, err := attendance.ParseStatus(raw)
	if err != nil {
		status = attendance.Status(raw)
	}
	ctl.Mark(c.Request.Context(), status)
	h.render(c, http.StatusOK, ctl, sh)
}

// ToggleEntries shows or hides the entry listing.
func (h *Handler) ToggleEntries(c *gin.Context) {
	ctl, sh := h.controller(c)
	ctl.ToggleEntries()
	ctl.Render(c.Request.Context())
	h.render(c, http.StatusOK, ctl, sh)
}

// TooManyAttempts answers rate-limited form posts with a notice on the next page.
func (h *Handler) TooManyAttempts(c *gin.Context) {
	sh := h.sessions.Load(c.Request.Context(), c.Request)
	sh.AddFlash(session.Flash{Kind: view.KindError, Message: MsgTooManyAttempts})
	if err := sh.Save(c.Request, c.Writer); err != nil {
		h.log.Error("save session cookie failed", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/")
	c.Abort()
}
