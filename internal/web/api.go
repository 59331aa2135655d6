package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studentattendance/internal/attendance"
	"studentattendance/internal/auth"
	"studentattendance/internal/view"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// APILogin exchanges credentials for a provider session.
func (h *Handler) APILogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.provider.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Info("api login failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": view.MsgLoginFailed})
		return
	}
	c.JSON(http.StatusOK, s)
}

// APIListAttendance returns a division's entries, newest first.
func (h *Handler) APIListAttendance(c *gin.Context) {
	division := attendance.Division(c.Query("division"))
	if division == "" {
		division = h.svc.Divisions().Default()
	}
	entries, err := h.svc.List(c.Request.Context(), division)
	if errors.Is(err, attendance.ErrInvalidDivision) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Warn("api list failed", zap.String("division", string(division)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": view.MsgLoadFailed})
		return
	}
	if entries == nil {
		entries = []attendance.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type markRequest struct {
	Enrollment string `json:"enrollment"`
	Division   string `json:"division" binding:"required"`
	Status     string `json:"status" binding:"required"`
}

// APIMarkAttendance records one entry for the bearer's user.
func (h *Handler) APIMarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, _ := auth.UserFrom(c)
	status, err := attendance.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.svc.Mark(c.Request.Context(), user.ID, req.Enrollment, attendance.Division(req.Division), status)
	switch {
	case errors.Is(err, attendance.ErrEnrollmentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": view.MsgEnrollmentNeeded})
	case errors.Is(err, attendance.ErrUserRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": view.MsgNotLoggedIn})
	case errors.Is(err, attendance.ErrInvalidDivision):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Warn("api mark failed", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": view.MsgMarkFailed})
	default:
		c.JSON(http.StatusCreated, e)
	}
}
