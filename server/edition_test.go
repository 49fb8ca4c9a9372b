package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeGitHubAPI serves the subset of the GitHub REST surface the service
// calls, from fixtures.
type fakeGitHubAPI struct {
	user       Identity
	orgs       []Organization
	orgDetails map[string]Organization
	received   []ActivityEvent
	orgEvents  []ActivityEvent
	userStatus int
}

func (f *fakeGitHubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/user":
		if f.userStatus != 0 {
			w.WriteHeader(f.userStatus)
			return
		}
		writeJSON(w, f.user)
	case path == "/user/orgs":
		writeJSON(w, f.orgs)
	case strings.HasPrefix(path, "/orgs/"):
		login := strings.TrimPrefix(path, "/orgs/")
		org, ok := f.orgDetails[login]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, org)
	case strings.HasSuffix(path, "/received_events"):
		writeJSON(w, f.received)
	case strings.Contains(path, "/events/orgs/"):
		writeJSON(w, f.orgEvents)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestAPIClient(t *testing.T, fake *fakeGitHubAPI) *APIClient {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := validTestConfig()
	cfg.GitHub.APIBaseURL = srv.URL
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAPIClient(cfg, logger, nil)
}

func eventAt(repo string, createdAt time.Time) ActivityEvent {
	return ActivityEvent{
		Type:      "PushEvent",
		Actor:     EventActor{Login: "phil"},
		Repo:      &EventRepo{Name: repo},
		CreatedAt: createdAt,
	}
}

func TestBuildEditionStopsAtFirstStaleEvent(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeGitHubAPI{
		user: Identity{Login: "phil"},
		received: []ActivityEvent{
			eventAt("a/one", now.Add(-1*time.Hour)),
			eventAt("a/two", now.Add(-2*time.Hour)),
			eventAt("a/stale", now.Add(-25*time.Hour)),
			// Inside the window but after a stale event; the newest-first
			// contract means the scan must already have stopped.
			eventAt("a/after-stale", now.Add(-3*time.Hour)),
		},
	}
	api := newTestAPIClient(t, fake)

	edition, err := BuildEdition(context.Background(), api, "tok", VarietyReceived, "", now, DefaultEditionWindow)
	if err != nil {
		t.Fatalf("BuildEdition returned error: %v", err)
	}
	if len(edition.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(edition.Events))
	}
	if edition.Events[1].Repo.Name != "a/two" {
		t.Fatalf("unexpected last event %q", edition.Events[1].Repo.Name)
	}
}

func TestBuildEditionNoRecentEvents(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeGitHubAPI{
		user:     Identity{Login: "phil"},
		received: []ActivityEvent{eventAt("a/old", now.Add(-48 * time.Hour))},
	}
	api := newTestAPIClient(t, fake)

	_, err := BuildEdition(context.Background(), api, "tok", VarietyReceived, "", now, DefaultEditionWindow)
	var nc *NoContentError
	if !errors.As(err, &nc) {
		t.Fatalf("expected NoContentError, got %v", err)
	}
	if !strings.Contains(nc.Message, "phil") {
		t.Fatalf("diagnostic %q does not name the user", nc.Message)
	}
}

func TestBuildEditionRejectsForeignOrganization(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeGitHubAPI{
		user: Identity{Login: "phil"},
		orgs: []Organization{{Login: "bergcloud"}},
	}
	api := newTestAPIClient(t, fake)

	_, err := BuildEdition(context.Background(), api, "tok", VarietyOrganization, "rig", now, DefaultEditionWindow)
	var nc *NoContentError
	if !errors.As(err, &nc) {
		t.Fatalf("expected NoContentError, got %v", err)
	}
	if !strings.Contains(nc.Message, "phil") || !strings.Contains(nc.Message, "rig") {
		t.Fatalf("diagnostic %q does not name user and organization", nc.Message)
	}
}

func TestBuildEditionOrganizationVariety(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeGitHubAPI{
		user: Identity{Login: "phil"},
		orgs: []Organization{{Login: "bergcloud"}},
		orgDetails: map[string]Organization{
			"bergcloud": {Login: "bergcloud", Name: "BERG Cloud"},
		},
		orgEvents: []ActivityEvent{eventAt("bergcloud/bridge", now.Add(-2 * time.Hour))},
	}
	api := newTestAPIClient(t, fake)

	edition, err := BuildEdition(context.Background(), api, "tok", VarietyOrganization, "bergcloud", now, DefaultEditionWindow)
	if err != nil {
		t.Fatalf("BuildEdition returned error: %v", err)
	}
	if edition.Organization == nil || edition.Organization.Name != "BERG Cloud" {
		t.Fatalf("expected full organization details, got %+v", edition.Organization)
	}
	if len(edition.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(edition.Events))
	}
}

func TestBuildEditionInvalidToken(t *testing.T) {
	fake := &fakeGitHubAPI{userStatus: http.StatusUnauthorized}
	api := newTestAPIClient(t, fake)

	_, err := BuildEdition(context.Background(), api, "revoked", VarietyReceived, "", time.Now(), DefaultEditionWindow)
	if !errors.Is(err, ErrUpstreamAuth) {
		t.Fatalf("expected ErrUpstreamAuth, got %v", err)
	}
}

func TestAPIClientUnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := validTestConfig()
	cfg.GitHub.APIBaseURL = srv.URL
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := NewAPIClient(cfg, logger, nil)

	_, err := api.User(context.Background(), "tok")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestFilterWindowEmptyPage(t *testing.T) {
	if got := filterWindow(nil, time.Now(), DefaultEditionWindow); len(got) != 0 {
		t.Fatalf("expected empty result for empty page, got %d", len(got))
	}
}
