package server

import (
	"testing"
	"time"
)

func TestFingerprintIsDeterministic(t *testing.T) {
	asOf := time.Date(2013, 4, 2, 9, 30, 0, 0, time.UTC)

	first := Fingerprint("token-a", asOf)
	second := Fingerprint("token-a", asOf)
	if first != second {
		t.Fatalf("same inputs produced %q and %q", first, second)
	}

	// Any instant on the same UTC day maps to the same value.
	later := asOf.Add(10 * time.Hour)
	if got := Fingerprint("token-a", later); got != first {
		t.Fatalf("same day produced %q, want %q", got, first)
	}
}

func TestFingerprintChangesWithDay(t *testing.T) {
	asOf := time.Date(2013, 4, 2, 23, 0, 0, 0, time.UTC)
	nextDay := asOf.Add(2 * time.Hour)

	if Fingerprint("token-a", asOf) == Fingerprint("token-a", nextDay) {
		t.Fatalf("fingerprint did not roll over at midnight UTC")
	}
}

func TestFingerprintChangesWithToken(t *testing.T) {
	asOf := time.Date(2013, 4, 2, 9, 30, 0, 0, time.UTC)

	if Fingerprint("token-a", asOf) == Fingerprint("token-b", asOf) {
		t.Fatalf("different tokens produced the same fingerprint")
	}
}

func TestFingerprintUsesUTCDay(t *testing.T) {
	// 23:30 in UTC+2 is 21:30 UTC the same day; 01:30 in UTC+2 is the
	// previous UTC day.
	zone := time.FixedZone("UTC+2", 2*3600)
	lateLocal := time.Date(2013, 4, 2, 23, 30, 0, 0, zone)
	sameUTC := time.Date(2013, 4, 2, 21, 30, 0, 0, time.UTC)

	if Fingerprint("token-a", lateLocal) != Fingerprint("token-a", sameUTC) {
		t.Fatalf("fingerprint not computed over UTC")
	}
}

func TestDebugFingerprintChangesWithMinute(t *testing.T) {
	asOf := time.Date(2013, 4, 2, 9, 30, 0, 0, time.UTC)

	if debugFingerprint("token-a", asOf) == debugFingerprint("token-a", asOf.Add(time.Minute)) {
		t.Fatalf("debug fingerprint did not change across minutes")
	}
	if debugFingerprint("token-a", asOf) != debugFingerprint("token-a", asOf.Add(30*time.Second)) {
		t.Fatalf("debug fingerprint changed within a minute")
	}
}
