package server

import (
	"context"
	"fmt"
	"time"
)

// BuildEdition assembles one edition for the identity behind token. For the
// organization variety the submitted organization login is validated against
// the identity's actual memberships before any events are fetched; a
// non-member organization is a NoContentError, not a failure, because the
// caller polls and a stale organization choice is a legitimate steady state.
func BuildEdition(ctx context.Context, api *APIClient, token string, v Variety, orgLogin string, now time.Time, window time.Duration) (*Edition, error) {
	user, err := api.User(ctx, token)
	if err != nil {
		return nil, err
	}

	edition := &Edition{User: user}

	var page []ActivityEvent
	if v == VarietyOrganization {
		orgs, err := api.Organizations(ctx, token)
		if err != nil {
			return nil, err
		}
		if !memberOf(orgs, orgLogin) {
			return nil, &NoContentError{
				Message: fmt.Sprintf("User '%s' doesn't have access to organization '%s'", user.Login, orgLogin),
			}
		}

		// The membership listing only carries a subset of the fields the
		// edition header needs, so fetch the organization in full.
		org, err := api.Organization(ctx, token, orgLogin)
		if err != nil {
			return nil, err
		}
		edition.Organization = &org

		page, err = api.OrganizationEvents(ctx, token, user.Login, orgLogin)
		if err != nil {
			return nil, err
		}
	} else {
		page, err = api.ReceivedEvents(ctx, token, user.Login)
		if err != nil {
			return nil, err
		}
	}

	edition.Events = filterWindow(page, now, window)
	if len(edition.Events) == 0 {
		return nil, &NoContentError{
			Message: fmt.Sprintf("User %s has no events to show today", user.Login),
		}
	}

	return edition, nil
}

// filterWindow keeps the events whose timestamp falls inside the rolling
// window ending at now. The feed is newest-first, so the scan stops at the
// first stale event instead of walking the whole page. If GitHub ever broke
// that ordering this would silently truncate; we accept the documented
// ordering guarantee rather than scanning every element.
func filterWindow(page []ActivityEvent, now time.Time, window time.Duration) []ActivityEvent {
	cutoff := now.UTC().Add(-window)
	events := make([]ActivityEvent, 0, len(page))
	for _, ev := range page {
		if ev.CreatedAt.Before(cutoff) {
			break
		}
		events = append(events, ev)
	}
	return events
}

func memberOf(orgs []Organization, login string) bool {
	if login == "" {
		return false
	}
	for _, org := range orgs {
		if org.Login == login {
			return true
		}
	}
	return false
}
