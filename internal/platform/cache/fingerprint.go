// Package cache provides the tiered response cache for the resolve pipeline:
// a bounded in-memory fast tier plus an optional Postgres-backed shared tier
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"time"
)

// Kind classifies a request for TTL policy purposes
type Kind string

const (
	// KindExact covers username/id lookups whose identity is stable
	KindExact Kind = "exact"
	// KindFuzzy covers keyword searches whose rankings shift as upstream data changes
	KindFuzzy Kind = "fuzzy"

	// TTLExact is the cache lifetime for exact lookups
	TTLExact = 15 * time.Minute
	// TTLFuzzy is the cache lifetime for fuzzy searches
	TTLFuzzy = 5 * time.Minute
)

// exactPattern matches canonical usernames and numeric ids
var exactPattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// Classify returns KindExact for canonical username/id strings, KindFuzzy otherwise
func Classify(value string) Kind {
	if exactPattern.MatchString(value) {
		return KindExact
	}
	return KindFuzzy
}

// TTLFor maps a request kind to its cache lifetime
func TTLFor(k Kind) time.Duration {
	if k == KindExact {
		return TTLExact
	}
	return TTLFuzzy
}

// Fingerprint derives a deterministic cache key from the canonicalized
// request parameters, namespaced by request kind. encoding/json sorts map
// keys, so logically identical requests always collide
func Fingerprint(namespace string, params map[string]any) string {
	canonical, err := json.Marshal(params)
	if err != nil {
		// map[string]any over scalars cannot fail to marshal; keep the key stable anyway
		canonical = []byte(namespace)
	}
	sum := sha256.Sum256(canonical)
	return namespace + ":" + hex.EncodeToString(sum[:])
}
