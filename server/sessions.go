package server

import (
	"log/slog"
	"net/http"
	"time"
)

const sessionCookieName = "editiond_flow"

// SessionManager binds delegation sessions to a browser cookie.
type SessionManager struct {
	store        *FlowStore
	logger       *slog.Logger
	ttl          time.Duration
	secure       bool
	cookieDomain string
}

// NewSessionManager constructs a session manager honouring config.
func NewSessionManager(cfg Config, store *FlowStore, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		store:        store,
		logger:       logger,
		ttl:          cfg.Sessions.TTL,
		secure:       !cfg.Server.DevMode,
		cookieDomain: cfg.Server.CookieDomain,
	}
}

// Fetch returns the session associated with the request cookie if present.
func (sm *SessionManager) Fetch(r *http.Request) (DelegationSession, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return DelegationSession{}, false
	}
	return sm.store.Get(cookie.Value)
}

// Create establishes a new session and sets the cookie. The provider callback
// arrives as a cross-site top-level navigation, so the cookie must be
// SameSite=Lax; Strict would strip it exactly when it is needed.
func (sm *SessionManager) Create(w http.ResponseWriter, sess DelegationSession) DelegationSession {
	sess.ID = sm.store.NewID()
	sess.CreatedAt = time.Now()
	sm.store.Save(sess)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Domain:   sm.cookieDomain,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sm.ttl.Seconds()),
	})

	return sess
}

// Update persists mutated flow state for an existing session.
func (sm *SessionManager) Update(sess DelegationSession) {
	sm.store.Save(sess)
}

// Discard drops the session after a final handoff and clears the cookie.
func (sm *SessionManager) Discard(w http.ResponseWriter, sess DelegationSession) {
	sm.store.Delete(sess.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   sm.cookieDomain,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
