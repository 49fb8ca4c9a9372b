package server

import (
	"encoding/json"
	"time"
)

// DelegationSession carries one browser's flow continuation data between the
// configure, callback, and organization-selection steps. AccessToken is only
// set while an organization flow waits for the selection step; FormError is
// one-shot.
type DelegationSession struct {
	ID          string
	Variety     Variety
	ReturnURL   string
	ErrorURL    string
	AccessToken string
	FormError   string
	CreatedAt   time.Time
}

// Configured reports whether the session can legally process a callback.
// A callback without both redirect URLs fails closed.
func (s DelegationSession) Configured() bool {
	return s.ReturnURL != "" && s.ErrorURL != ""
}

// Identity is the normalized user record behind an access token. Fetched
// fresh per request, never cached.
type Identity struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Organization describes one organization a user belongs to.
type Organization struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// ActivityEvent is one normalized feed entry. Immutable once fetched; the
// feed delivers them newest-first.
type ActivityEvent struct {
	Type      string          `json:"type"`
	Actor     EventActor      `json:"actor"`
	Repo      *EventRepo      `json:"repo,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventActor identifies who triggered an event.
type EventActor struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// EventRepo names the repository an event happened in.
type EventRepo struct {
	Name string `json:"name"`
}

// Edition is the finished output value handed to the renderer: one identity,
// an optional organization, and the windowed event sequence. Constructed
// fresh per request and never mutated afterwards.
type Edition struct {
	User         Identity        `json:"user"`
	Organization *Organization   `json:"organization,omitempty"`
	Events       []ActivityEvent `json:"events"`
}
