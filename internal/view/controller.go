package view

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"studentattendance/internal/attendance"
	"studentattendance/internal/auth"
)

// Auth views shown while signed out.
const (
	ViewLogin    = "login"
	ViewRegister = "register"
)

// Notice kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Notice texts shown to the operator.
const (
	MsgLoggedIn         = "Logged in successfully"
	MsgLoginFailed      = "Login failed"
	MsgRegistered       = "Registration successful! Please check your email."
	MsgRegisterFailed   = "Registration failed"
	MsgLoggedOut        = "Logged out successfully"
	MsgEnrollmentNeeded = "Please enter enrollment number"
	MsgNotLoggedIn      = "User not logged in"
	MsgMarkFailed       = "Failed to mark attendance"
	MsgLoadFailed       = "Failed to load entries"
)

// Notice is a transient message for the operator.
type Notice struct {
	Kind    string
	Message string
}

// Session is the browser's mirror of the provider session.
type Session interface {
	User() *auth.User
	Session() *auth.Session
	Establish(ctx context.Context, s *auth.Session) error
	Clear(ctx context.Context) error
}

// State is everything the page renders.
type State struct {
	User          *auth.User
	View          string
	Email         string
	Division      attendance.Division
	Divisions     attendance.Divisions
	Enrollment    string
	Entries       []attendance.Entry
	EntriesLoaded bool
	ShowEntries   bool
	Notices       []Notice
}

// Attendance reports whether the attendance form is shown instead of the auth forms.
func (s State) Attendance() bool { return s.User != nil }

// Controller applies UI events to State. One controller serves one request.
type Controller struct {
	provider auth.Provider
	svc      *attendance.Service
	sess     Session
	log      *zap.Logger

	State State
}

// New returns a controller showing the login view for the default division.
func New(provider auth.Provider, svc *attendance.Service, sess Session, log *zap.Logger) *Controller {
	return &Controller{
		provider: provider,
		svc:      svc,
		sess:     sess,
		log:      log,
		State: State{
			View:      ViewLogin,
			Divisions: svc.Divisions(),
			Division:  svc.Divisions().Default(),
		},
	}
}

// Restore applies persisted UI settings and the current session without any remote call.
func (c *Controller) Restore(view string, division attendance.Division, showEntries bool, enrollment string) {
	if view == ViewRegister {
		c.State.View = ViewRegister
	}
	if c.State.Divisions.Contains(division) {
		c.State.Division = division
	}
	c.State.ShowEntries = showEntries
	c.State.Enrollment = enrollment
	c.State.User = c.sess.User()
}

// Render prepares a full page: entries are fetched when the attendance form is shown.
func (c *Controller) Render(ctx context.Context) {
	c.OnSessionChange()
	if c.State.User != nil {
		c.loadEntries(ctx)
	}
}

// OnSessionChange switches between the auth forms and the attendance form
// according to session presence.
func (c *Controller) OnSessionChange() {
	c.State.User = c.sess.User()
	if c.State.User == nil {
		c.State.Entries = nil
		c.State.EntriesLoaded = false
	}
}

// ShowLogin switches the auth form to login.
func (c *Controller) ShowLogin() { c.State.View = ViewLogin }

// ShowRegister switches the auth form to registration.
func (c *Controller) ShowRegister() { c.State.View = ViewRegister }

// Login signs in with the provider and establishes the returned session.
func (c *Controller) Login(ctx context.Context, email, password string) {
	s, err := c.provider.SignInWithPassword(ctx, email, password)
	if err == nil {
		err = c.sess.Establish(ctx, s)
	}
	if err != nil {
		c.log.Info("login failed", zap.String("email", email), zap.Error(err))
		c.State.Email = email
		c.notify(KindError, MsgLoginFailed)
		return
	}
	c.State.Email = ""
	c.notify(KindSuccess, MsgLoggedIn)
	c.OnSessionChange()
}

// Register creates an account. An immediately returned session is established.
func (c *Controller) Register(ctx context.Context, email, password string) {
	s, err := c.provider.SignUp(ctx, email, password)
	if err == nil && s != nil {
		err = c.sess.Establish(ctx, s)
	}
	if err != nil {
		c.log.Info("registration failed", zap.String("email", email), zap.Error(err))
		c.State.Email = email
		c.notify(KindError, MsgRegisterFailed)
		return
	}
	c.State.View = ViewLogin
	c.State.Email = ""
	c.notify(KindSuccess, MsgRegistered)
	c.OnSessionChange()
}

// Logout signs out at the provider, ignoring its errors, and drops the session.
func (c *Controller) Logout(ctx context.Context) {
	if s := c.sess.Session(); s != nil {
		if err := c.provider.SignOut(ctx, s.AccessToken); err != nil {
			c.log.Info("provider sign-out failed", zap.Error(err))
		}
	}
	if err := c.sess.Clear(ctx); err != nil {
		c.log.Warn("clear session failed", zap.Error(err))
	}
	c.State.View = ViewLogin
	c.notify(KindSuccess, MsgLoggedOut)
	c.OnSessionChange()
}

// SetDivision selects a division and fetches its entries once.
func (c *Controller) SetDivision(ctx context.Context, d attendance.Division) {
	if !c.SelectDivision(d) {
		c.log.Debug("ignoring unknown division", zap.String("division", string(d)))
		return
	}
	if c.State.User != nil {
		c.loadEntries(ctx)
	}
}

// SelectDivision picks a division without fetching its entries. Unknown
// divisions are refused and leave the selection unchanged.
func (c *Controller) SelectDivision(d attendance.Division) bool {
	if !c.State.Divisions.Contains(d) {
		return false
	}
	c.State.Division = d
	return true
}

// SetEnrollment updates the enrollment field.
func (c *Controller) SetEnrollment(v string) { c.State.Enrollment = v }

// ToggleEntries flips between "View Entries" and "Hide Entries".
func (c *Controller) ToggleEntries() { c.State.ShowEntries = !c.State.ShowEntries }

// Mark records the current enrollment with status. On success the enrollment is
// cleared and the listing is fetched once.
func (c *Controller) Mark(ctx context.Context, status attendance.Status) {
	userID := ""
	if c.State.User != nil {
		userID = c.State.User.ID
	}
	_, err := c.svc.Mark(auth.WithSession(ctx, c.sess.Session()), userID, c.State.Enrollment, c.State.Division, status)
	switch {
	case errors.Is(err, attendance.ErrEnrollmentRequired):
		c.notify(KindError, MsgEnrollmentNeeded)
		return
	case errors.Is(err, attendance.ErrUserRequired):
		c.notify(KindError, MsgNotLoggedIn)
		return
	case err != nil:
		c.log.Warn("mark attendance failed", zap.String("division", string(c.State.Division)), zap.Error(err))
		c.notify(KindError, MsgMarkFailed)
		return
	}
	c.notify(KindSuccess, fmt.Sprintf("Marked %s as %s", strings.TrimSpace(c.State.Enrollment), status))
	c.State.Enrollment = ""
	c.loadEntries(ctx)
}

// loadEntries replaces the listing; on failure the previous entries stay.
func (c *Controller) loadEntries(ctx context.Context) {
	entries, err := c.svc.List(auth.WithSession(ctx, c.sess.Session()), c.State.Division)
	if err != nil {
		c.log.Warn("load entries failed", zap.String("division", string(c.State.Division)), zap.Error(err))
		c.notify(KindError, MsgLoadFailed)
		return
	}
	c.State.Entries = entries
	c.State.EntriesLoaded = true
}

// AddNotice queues a notice carried over from a previous request.
func (c *Controller) AddNotice(n Notice) {
	c.State.Notices = append(c.State.Notices, n)
}

func (c *Controller) notify(kind, msg string) {
	c.State.Notices = append(c.State.Notices, Notice{Kind: kind, Message: msg})
}
