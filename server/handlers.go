package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const selectOrgPath = "/organization/select-org/"

// App bundles runtime dependencies for the HTTP service.
type App struct {
	Config    Config
	Logger    *slog.Logger
	Store     *FlowStore
	Sessions  *SessionManager
	Exchanger *Exchanger
	API       *APIClient
	State     *StateSigner
	Metrics   *Metrics
}

// NewApp wires together the application state from configuration.
func NewApp(cfg Config, logger *slog.Logger) (*App, error) {
	metrics := NewMetrics()
	store := NewFlowStore(cfg.Sessions.TTL)

	state, err := NewStateSigner(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Sessions:  NewSessionManager(cfg, store, logger),
		Exchanger: NewExchanger(cfg, logger),
		API:       NewAPIClient(cfg, logger, metrics),
		State:     state,
		Metrics:   metrics,
	}, nil
}

// handleConfigure starts a delegation flow: the caller sends the user here
// with its redirect URLs, and we forward the browser to GitHub.
func (a *App) handleConfigure(w http.ResponseWriter, r *http.Request) {
	v, ok := a.variety(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	returnURL := q.Get("return_url")
	errorURL := q.Get("error_url")
	if returnURL == "" || errorURL == "" {
		// Without both URLs there is nowhere legal to send the user back to,
		// so nothing is stored and the provider is never contacted.
		http.Error(w, "return_url and error_url are required", http.StatusBadRequest)
		return
	}

	sess := a.Sessions.Create(w, DelegationSession{
		Variety:   v,
		ReturnURL: returnURL,
		ErrorURL:  errorURL,
	})

	state, err := a.State.Sign(sess.ID, v)
	if err != nil {
		a.Logger.Error("sign state", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, a.Exchanger.AuthCodeURL(v, state), http.StatusFound)
}

// handleCallback processes the user's return from GitHub, with or without an
// authorization code.
func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	v, ok := a.variety(w, r)
	if !ok {
		return
	}

	sess, ok := a.Sessions.Fetch(r)
	if !ok || !sess.Configured() || sess.Variety != v {
		// No session means no trustworthy redirect target: fail closed.
		http.Error(w, "no delegation flow in progress", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	if err := a.State.Verify(q.Get("state"), sess.ID, v); err != nil {
		a.Logger.Warn("callback state rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
		a.redirectError(w, r, sess)
		return
	}

	code := q.Get("code")
	if code == "" {
		// The user declined, or GitHub reported an error. Send them back to
		// the caller without ever holding a credential.
		a.redirectError(w, r, sess)
		return
	}

	token, err := a.Exchanger.Exchange(r.Context(), v, code)
	if err != nil {
		a.Logger.Warn("code exchange failed", "error", err, "variety", v.String())
		a.redirectError(w, r, sess)
		return
	}

	if v == VarietyOrganization {
		// Park the credential until the user picks an organization.
		sess.AccessToken = token
		a.Sessions.Update(sess)
		http.Redirect(w, r, selectOrgPath, http.StatusFound)
		return
	}

	target, err := handoffURL(sess.ReturnURL, token, "")
	if err != nil {
		a.Logger.Error("bad return_url", "error", err)
		a.redirectError(w, r, sess)
		return
	}
	a.Sessions.Discard(w, sess)
	http.Redirect(w, r, target, http.StatusFound)
}

// selectOrgDocument is the choice interaction handed to the renderer.
type selectOrgDocument struct {
	User          Identity       `json:"user"`
	Organizations []Organization `json:"organizations"`
	FormError     string         `json:"form_error,omitempty"`
}

func (a *App) handleSelectOrgPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.pendingSelection(w, r)
	if !ok {
		return
	}

	user, err := a.API.User(r.Context(), sess.AccessToken)
	if err != nil {
		a.upstreamFailure(w, r, "fetching user data", err)
		return
	}
	orgs, err := a.API.Organizations(r.Context(), sess.AccessToken)
	if err != nil {
		a.upstreamFailure(w, r, "fetching organizations for the user", err)
		return
	}

	writeJSON(w, selectOrgDocument{
		User:          user,
		Organizations: orgs,
		FormError:     a.Store.TakeFormError(sess.ID),
	})
}

func (a *App) handleSelectOrgSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.pendingSelection(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	choice := r.PostFormValue("organization")
	if choice == "" {
		a.rejectSelection(w, r, sess)
		return
	}

	// Never trust the submitted login: re-fetch the actual memberships and
	// require the choice to be one of them.
	orgs, err := a.API.Organizations(r.Context(), sess.AccessToken)
	if err != nil {
		a.upstreamFailure(w, r, "fetching organizations for the user", err)
		return
	}
	if !memberOf(orgs, choice) {
		a.rejectSelection(w, r, sess)
		return
	}

	target, err := handoffURL(sess.ReturnURL, sess.AccessToken, choice)
	if err != nil {
		a.Logger.Error("bad return_url", "error", err)
		a.redirectError(w, r, sess)
		return
	}
	a.Sessions.Discard(w, sess)
	http.Redirect(w, r, target, http.StatusFound)
}

// handleEdition serves one windowed edition for the caller's stored credential.
func (a *App) handleEdition(w http.ResponseWriter, r *http.Request) {
	v, ok := a.variety(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	token := q.Get("access_token")
	if token == "" {
		http.Error(w, "access_token is required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	etag := a.fingerprint(token, now)
	w.Header().Set("ETag", `"`+etag+`"`)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	edition, err := BuildEdition(r.Context(), a.API, token, v, q.Get("organization"), now, a.Config.Edition.Window)
	if err != nil {
		var nc *NoContentError
		if errors.As(err, &nc) {
			// A 204 body never reaches the wire, so the diagnostic message
			// travels in a header instead.
			w.Header().Set("X-No-Content-Reason", nc.Message)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		a.upstreamFailure(w, r, "assembling the edition", err)
		return
	}

	writeJSON(w, edition)
}

// handleSample serves a fixed edition so callers can integrate without a
// real delegation.
func (a *App) handleSample(w http.ResponseWriter, r *http.Request) {
	v, ok := a.variety(w, r)
	if !ok {
		return
	}

	now := time.Now()
	etag := a.fingerprint("sample", now)
	w.Header().Set("ETag", `"`+etag+`"`)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, sampleEdition(v, now))
}

func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	v, ok := a.variety(w, r)
	if !ok {
		return
	}
	output := "Little Printer GitHub Events Publication"
	if v == VarietyOrganization {
		output += " for an Organization"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, output)
}

func (a *App) handleMeta(w http.ResponseWriter, r *http.Request) {
	v, ok := a.variety(w, r)
	if !ok {
		return
	}
	name := "GitHub Events"
	if v == VarietyOrganization {
		name += " for Organizations"
	}
	writeJSON(w, map[string]string{
		"name":        name,
		"description": "Your GitHub activity from the past 24 hours, printed daily.",
		"variety":     v.String(),
	})
}

func (a *App) handleValidateConfig(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.variety(w, r); !ok {
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *App) handleFavicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusGone)
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// variety parses the path's variety segment, answering 404 for anything that
// is not a deployed publication.
func (a *App) variety(w http.ResponseWriter, r *http.Request) (Variety, bool) {
	v, err := ParseVariety(chi.URLParam(r, "variety"))
	if err != nil {
		http.NotFound(w, r)
		return "", false
	}
	return v, true
}

// pendingSelection resolves a session that is parked between callback and
// organization choice.
func (a *App) pendingSelection(w http.ResponseWriter, r *http.Request) (DelegationSession, bool) {
	sess, ok := a.Sessions.Fetch(r)
	if !ok || !sess.Configured() || sess.AccessToken == "" {
		http.Error(w, "no delegation flow in progress", http.StatusBadRequest)
		return DelegationSession{}, false
	}
	return sess, true
}

// rejectSelection records the one-shot form error and re-presents the choice.
func (a *App) rejectSelection(w http.ResponseWriter, r *http.Request, sess DelegationSession) {
	sess.FormError = "Please select an organization"
	a.Sessions.Update(sess)
	http.Redirect(w, r, selectOrgPath, http.StatusFound)
}

func (a *App) redirectError(w http.ResponseWriter, r *http.Request, sess DelegationSession) {
	http.Redirect(w, r, sess.ErrorURL, http.StatusFound)
}

// upstreamFailure converts a classified GitHub failure into a 500 with a
// stable message; details stay in the log.
func (a *App) upstreamFailure(w http.ResponseWriter, r *http.Request, step string, err error) {
	a.Logger.Error("upstream failure",
		"step", step,
		"error", err,
		"request_id", RequestIDFromContext(r.Context()),
	)
	http.Error(w, "Something went wrong "+step, http.StatusInternalServerError)
}

func (a *App) fingerprint(token string, asOf time.Time) string {
	if a.Config.Edition.DebugFingerprint {
		return debugFingerprint(token, asOf)
	}
	return Fingerprint(token, asOf)
}

// handoffURL appends the issued credential (and chosen organization) to the
// caller's return URL.
func handoffURL(returnURL, token, org string) (string, error) {
	u, err := url.Parse(returnURL)
	if err != nil {
		return "", fmt.Errorf("parse return_url: %w", err)
	}
	q := u.Query()
	q.Set("config[access_token]", token)
	if org != "" {
		q.Set("config[organization]", org)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		candidate = strings.Trim(candidate, `"`)
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
