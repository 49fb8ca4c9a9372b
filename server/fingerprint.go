package server

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Fingerprint produces the cache validation token for an edition request: a
// stable hash of the credential and the current UTC calendar day. Repeated
// fetches for the same token on the same day see the same value; it rolls
// over at midnight UTC.
func Fingerprint(token string, asOf time.Time) string {
	return hashHex(token + asOf.UTC().Format("02012006"))
}

// debugFingerprint recomputes per minute so cache behaviour can be bypassed
// while diagnosing edition output. Never the default: it defeats caching.
func debugFingerprint(token string, asOf time.Time) string {
	return hashHex(token + asOf.UTC().Format("0415-02012006"))
}

func hashHex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
