package server

import (
	"encoding/json"
	"time"
)

// sampleEdition returns the fixed edition used for caller-side integration
// testing. Timestamps sit inside the window relative to now so the sample
// always looks like a live edition.
func sampleEdition(v Variety, now time.Time) Edition {
	user := Identity{
		Login:     "philgyford",
		Name:      "Phil Gyford",
		AvatarURL: "https://avatars.githubusercontent.com/u/153812?v=4",
	}

	edition := Edition{User: user}

	if v == VarietyOrganization {
		edition.Organization = &Organization{
			Login:     "bergcloud",
			Name:      "BERG Cloud",
			AvatarURL: "https://avatars.githubusercontent.com/u/1219249?v=4",
		}
		edition.Events = []ActivityEvent{
			{
				Type:      "PushEvent",
				Actor:     EventActor{Login: "philgyford"},
				Repo:      &EventRepo{Name: "bergcloud/bridge"},
				CreatedAt: now.Add(-2 * time.Hour),
				Payload: json.RawMessage(`{"size":2,"commits":[` +
					`{"message":"Send battery status with device heartbeat"},` +
					`{"message":"Retry pairing when the bridge drops offline"}]}`),
			},
			{
				Type:      "IssuesEvent",
				Actor:     EventActor{Login: "alicebartlett"},
				Repo:      &EventRepo{Name: "bergcloud/little-printer"},
				CreatedAt: now.Add(-5 * time.Hour),
				Payload:   json.RawMessage(`{"action":"closed","issue":{"number":42,"title":"Paper feed jams on long editions"}}`),
			},
			{
				Type:      "WatchEvent",
				Actor:     EventActor{Login: "philgyford"},
				Repo:      &EventRepo{Name: "bergcloud/bergcloud-ruby"},
				CreatedAt: now.Add(-11 * time.Hour),
				Payload:   json.RawMessage(`{"action":"started"}`),
			},
		}
		return edition
	}

	edition.Events = []ActivityEvent{
		{
			Type:      "PushEvent",
			Actor:     EventActor{Login: "samuelpepys"},
			Repo:      &EventRepo{Name: "philgyford/daily-diary"},
			CreatedAt: now.Add(-1 * time.Hour),
			Payload:   json.RawMessage(`{"size":1,"commits":[{"message":"Up betimes, and to the office"}]}`),
		},
		{
			Type:      "ForkEvent",
			Actor:     EventActor{Login: "philgyford"},
			Repo:      &EventRepo{Name: "sinatra/sinatra"},
			CreatedAt: now.Add(-4 * time.Hour),
			Payload:   json.RawMessage(`{}`),
		},
		{
			Type:      "IssueCommentEvent",
			Actor:     EventActor{Login: "philgyford"},
			Repo:      &EventRepo{Name: "philgyford/pepysdiary"},
			CreatedAt: now.Add(-9 * time.Hour),
			Payload:   json.RawMessage(`{"action":"created","issue":{"number":7,"title":"Annotations render out of order"}}`),
		},
		{
			Type:      "WatchEvent",
			Actor:     EventActor{Login: "philgyford"},
			Repo:      &EventRepo{Name: "bergcloud/little-printer"},
			CreatedAt: now.Add(-19 * time.Hour),
			Payload:   json.RawMessage(`{"action":"started"}`),
		},
	}

	return edition
}
