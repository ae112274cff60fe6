// Package domain holds the resolve service's shared types
package domain

import (
	"time"

	"veriscope/internal/core/rank"
)

// Kind selects the exact-lookup mode
type Kind string

// Exact lookup kinds
const (
	KindUsername Kind = "username"
	KindUserID   Kind = "user_id"
)

// Valid reports whether k is a recognized lookup kind
func (k Kind) Valid() bool {
	return k == KindUsername || k == KindUserID
}

// CandidateRecord is one upstream identity record, immutable once fetched
type CandidateRecord struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Verified    bool       `json:"verified"`
	Created     *time.Time `json:"created,omitempty"`
	Description string     `json:"description,omitempty"`
	Banned      bool       `json:"banned,omitempty"`
}

// ScoredCandidate pairs a record with its ranking output
type ScoredCandidate struct {
	Record     CandidateRecord `json:"record"`
	Confidence int             `json:"confidence"`
	Signals    rank.Signals    `json:"signals"`
	Rationale  []string        `json:"rationale"`
}

// VerifyResult is the outcome of an exact lookup
type VerifyResult struct {
	Found     bool             `json:"found"`
	Record    *CandidateRecord `json:"record,omitempty"`
	FromCache bool             `json:"from_cache"`
}

// SearchResult is the outcome of a fuzzy search
type SearchResult struct {
	Results   []ScoredCandidate `json:"results"`
	FromCache bool              `json:"from_cache"`
}
