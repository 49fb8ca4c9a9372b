package server

import "errors"

// Upstream failure classification. Every GitHub call converts its failure to
// one of these at the point of the call; raw transport errors never reach a
// response.
var (
	// ErrProviderAuth covers code-exchange rejections: expired or reused
	// codes and redirect URI mismatches. Terminal for the delegation attempt.
	ErrProviderAuth = errors.New("github rejected the authorization code")

	// ErrUpstreamAuth means a previously issued access token is now
	// invalid, expired, or revoked.
	ErrUpstreamAuth = errors.New("github rejected the access token")

	// ErrProviderUnavailable covers transport failures reaching GitHub.
	// No retry happens here; the caller re-polls later.
	ErrProviderUnavailable = errors.New("github unreachable")
)

// NoContentError is the expected empty outcome of an edition fetch: no events
// inside the window, or an organization the user does not belong to. It is a
// steady state for a polling caller, not a failure.
type NoContentError struct {
	Message string
}

func (e *NoContentError) Error() string { return e.Message }
