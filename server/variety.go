package server

import "fmt"

// Variety selects which delegation and data mode a request runs in. Each
// publication is deployed as exactly one variety; the variety is the
// top-level path segment of every publication URL.
type Variety string

const (
	// VarietyReceived serves the events a single user has received.
	VarietyReceived Variety = "received"
	// VarietyOrganization serves the events of one organization the user belongs to.
	VarietyOrganization Variety = "organization"
)

// ParseVariety validates a path segment. The variety is always request-scoped;
// it is never stored in process-wide state.
func ParseVariety(s string) (Variety, error) {
	switch Variety(s) {
	case VarietyReceived:
		return VarietyReceived, nil
	case VarietyOrganization:
		return VarietyOrganization, nil
	default:
		return "", fmt.Errorf("unknown variety %q", s)
	}
}

func (v Variety) String() string { return string(v) }

// Scope returns the GitHub permission scope the variety needs. Individual
// received events only need repo:status; enumerating and reading an
// organization's activity needs the full repo scope, a strict superset.
func (v Variety) Scope() string {
	if v == VarietyOrganization {
		return "repo"
	}
	return "repo:status"
}
