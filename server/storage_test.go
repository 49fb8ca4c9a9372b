package server

import (
	"testing"
	"time"
)

func TestFlowStoreSaveAndGet(t *testing.T) {
	store := NewFlowStore(time.Minute)

	sess := DelegationSession{
		ID:        store.NewID(),
		Variety:   VarietyReceived,
		ReturnURL: "https://remote.example/return",
		ErrorURL:  "https://remote.example/error",
	}
	store.Save(sess)

	got, ok := store.Get(sess.ID)
	if !ok {
		t.Fatalf("expected session to be retrievable")
	}
	if got.ReturnURL != sess.ReturnURL || got.Variety != VarietyReceived {
		t.Fatalf("round-tripped session changed: %+v", got)
	}

	store.Delete(sess.ID)
	if _, ok := store.Get(sess.ID); ok {
		t.Fatalf("expected session to be gone after delete")
	}
}

func TestFlowStoreExpires(t *testing.T) {
	store := NewFlowStore(10 * time.Millisecond)

	sess := DelegationSession{ID: store.NewID(), ReturnURL: "https://remote.example/return"}
	store.Save(sess)

	time.Sleep(30 * time.Millisecond)

	if _, ok := store.Get(sess.ID); ok {
		t.Fatalf("expected session to expire")
	}
}

func TestTakeFormErrorIsOneShot(t *testing.T) {
	store := NewFlowStore(time.Minute)

	sess := DelegationSession{ID: store.NewID(), FormError: "Please select an organization"}
	store.Save(sess)

	if got := store.TakeFormError(sess.ID); got != "Please select an organization" {
		t.Fatalf("TakeFormError = %q", got)
	}
	if got := store.TakeFormError(sess.ID); got != "" {
		t.Fatalf("second TakeFormError = %q, want empty", got)
	}

	// The session itself survives the take.
	if _, ok := store.Get(sess.ID); !ok {
		t.Fatalf("expected session to remain after taking the form error")
	}
}

func TestNewIDIsUnique(t *testing.T) {
	store := NewFlowStore(time.Minute)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := store.NewID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
