package session

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"studentattendance/internal/auth"
	"studentattendance/internal/events"
)

const (
	cookieName = "attendance"

	keyBrowser    = "browser"
	keySession    = "sid"
	keyView       = "view"
	keyDivision   = "division"
	keyShow       = "show_entries"
	keyEnrollment = "enrollment"
)

// Flash is a one-shot notification carried to the next page render.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

// Prefs are per-browser form settings kept in the cookie.
type Prefs struct {
	View        string
	Division    string
	ShowEntries bool
	Enrollment  string
}

// NewCookieStore returns a signed cookie store for the browser half of a session.
func NewCookieStore(secret string, secure bool, maxAge time.Duration) *sessions.CookieStore {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}

// Manager mirrors the provider's session for each browser. The cookie holds a
// stable browser id and the id of a server-side Record with the tokens.
type Manager struct {
	cookies  sessions.Store
	store    Store
	provider auth.Provider
	broker   events.Broker
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewManager creates a manager whose server records live for ttl.
func NewManager(cookies sessions.Store, store Store, provider auth.Provider, broker events.Broker, ttl time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		cookies:  cookies,
		store:    store,
		provider: provider,
		broker:   broker,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// Load fetches the current session of the request's browser. Expired tokens are
// refreshed once; any failure leaves the browser unauthenticated.
func (m *Manager) Load(ctx context.Context, r *http.Request) *Handle {
	cookie, err := m.cookies.Get(r, cookieName)
	if err != nil {
		// gorilla hands back a fresh session alongside the decode error.
		m.log.Debug("discarding unreadable session cookie", zap.Error(err))
	}
	h := &Handle{m: m, cookie: cookie}
	if id, _ := cookie.Values[keyBrowser].(string); id == "" {
		cookie.Values[keyBrowser] = uuid.NewString()
	}

	sid, _ := cookie.Values[keySession].(string)
	if sid == "" {
		return h
	}
	rec, err := m.store.Get(ctx, sid)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Warn("session lookup failed", zap.String("browser", h.Browser()), zap.Error(err))
		}
		delete(cookie.Values, keySession)
		return h
	}
	if rec.Session.Expired(m.now()) {
		rec = m.refresh(ctx, h, rec)
	}
	h.record = rec
	return h
}

func (m *Manager) refresh(ctx context.Context, h *Handle, rec *Record) *Record {
	next, err := m.provider.RefreshSession(ctx, rec.Session.RefreshToken)
	if err != nil {
		// A concurrent request may have rotated the refresh token first.
		if cur, gerr := m.store.Get(ctx, rec.ID); gerr == nil && cur.Session.RefreshToken != rec.Session.RefreshToken {
			m.log.Debug("session refreshed by another request", zap.String("user_id", cur.Session.User.ID))
			return cur
		}
		m.log.Info("session refresh failed", zap.String("user_id", rec.Session.User.ID), zap.Error(err))
		if err := m.store.Delete(ctx, rec.ID); err != nil {
			m.log.Warn("drop session failed", zap.Error(err))
		}
		delete(h.cookie.Values, keySession)
		m.publish(ctx, events.SignedOut, h.Browser(), rec.Session.User.ID)
		return nil
	}
	rec.Session = *next
	if err := m.store.Put(ctx, rec, m.ttl); err != nil {
		m.log.Warn("store refreshed session failed", zap.Error(err))
	}
	m.publish(ctx, events.TokenRefreshed, h.Browser(), next.User.ID)
	return rec
}

// Subscribe streams the session changes of a browser until ctx is done.
func (m *Manager) Subscribe(ctx context.Context, browser string) (<-chan events.Event, error) {
	return m.broker.Subscribe(ctx, browser)
}

func (m *Manager) publish(ctx context.Context, typ events.Type, browser, userID string) {
	ev := events.Event{Type: typ, Browser: browser, UserID: userID, At: m.now().UTC()}
	if err := m.broker.Publish(ctx, ev); err != nil {
		m.log.Warn("publish session event failed", zap.String("type", string(typ)), zap.Error(err))
	}
}

// Handle is the session of one request.
type Handle struct {
	m      *Manager
	cookie *sessions.Session
	record *Record
}

// Browser is the stable id of the browser, independent of sign-in state.
func (h *Handle) Browser() string {
	id, _ := h.cookie.Values[keyBrowser].(string)
	return id
}

// Session returns the provider session, or nil when signed out.
func (h *Handle) Session() *auth.Session {
	if h.record == nil {
		return nil
	}
	return &h.record.Session
}

// User returns the signed-in user, or nil.
func (h *Handle) User() *auth.User {
	if h.record == nil {
		return nil
	}
	u := h.record.Session.User
	return &u
}

// Establish stores a new provider session for this browser, replacing any previous one.
func (h *Handle) Establish(ctx context.Context, s *auth.Session) error {
	if s == nil {
		return auth.ErrNoSession
	}
	if h.record != nil {
		if err := h.m.store.Delete(ctx, h.record.ID); err != nil {
			h.m.log.Warn("drop previous session failed", zap.Error(err))
		}
	}
	rec := &Record{ID: uuid.NewString(), Session: *s, CreatedAt: h.m.now().UTC()}
	if err := h.m.store.Put(ctx, rec, h.m.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	h.record = rec
	h.cookie.Values[keySession] = rec.ID
	h.m.publish(ctx, events.SignedIn, h.Browser(), s.User.ID)
	return nil
}

// Clear forgets the session. Calling it while signed out is a no-op.
func (h *Handle) Clear(ctx context.Context) error {
	if h.record == nil {
		return nil
	}
	userID := h.record.Session.User.ID
	err := h.m.store.Delete(ctx, h.record.ID)
	h.record = nil
	delete(h.cookie.Values, keySession)
	h.m.publish(ctx, events.SignedOut, h.Browser(), userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Prefs returns the form settings saved for this browser.
func (h *Handle) Prefs() Prefs {
	v := h.cookie.Values
	p := Prefs{}
	p.View, _ = v[keyView].(string)
	p.Division, _ = v[keyDivision].(string)
	p.ShowEntries, _ = v[keyShow].(bool)
	p.Enrollment, _ = v[keyEnrollment].(string)
	return p
}

// SetPrefs replaces the saved form settings. Save persists them.
func (h *Handle) SetPrefs(p Prefs) {
	v := h.cookie.Values
	v[keyView] = p.View
	v[keyDivision] = p.Division
	v[keyShow] = p.ShowEntries
	v[keyEnrollment] = p.Enrollment
}

// AddFlash queues a notice for the next page load.
func (h *Handle) AddFlash(f Flash) {
	h.cookie.AddFlash(f)
}

// Flashes returns and consumes pending flashes.
func (h *Handle) Flashes() []Flash {
	var out []Flash
	for _, v := range h.cookie.Flashes() {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}

// Save writes the cookie half of the session to the response.
func (h *Handle) Save(r *http.Request, w http.ResponseWriter) error {
	return h.cookie.Save(r, w)
}
