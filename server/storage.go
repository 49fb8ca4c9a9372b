package server

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// FlowStore keeps ephemeral per-browser delegation sessions. Entries expire
// on their own; per-key writes are last-write-wins, which is enough for a
// logically single-threaded browser session.
type FlowStore struct {
	ttl time.Duration
	c   *gocache.Cache
}

// NewFlowStore constructs the store with the session TTL.
func NewFlowStore(ttl time.Duration) *FlowStore {
	return &FlowStore{
		ttl: ttl,
		c:   gocache.New(ttl, time.Minute),
	}
}

// NewID generates a random identifier.
func (s *FlowStore) NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte("fallbackid"))
	}
	return hex.EncodeToString(buf)
}

// Save stores or replaces a session, resetting its expiry.
func (s *FlowStore) Save(sess DelegationSession) {
	s.c.Set(sess.ID, sess, s.ttl)
}

// Get retrieves a session by ID.
func (s *FlowStore) Get(id string) (DelegationSession, bool) {
	v, ok := s.c.Get(id)
	if !ok {
		return DelegationSession{}, false
	}
	sess, ok := v.(DelegationSession)
	return sess, ok
}

// Delete removes a session once its flow has handed off.
func (s *FlowStore) Delete(id string) {
	s.c.Delete(id)
}

// TakeFormError reads and clears the session's one-shot form error.
func (s *FlowStore) TakeFormError(id string) string {
	sess, ok := s.Get(id)
	if !ok || sess.FormError == "" {
		return ""
	}
	msg := sess.FormError
	sess.FormError = ""
	s.Save(sess)
	return msg
}
