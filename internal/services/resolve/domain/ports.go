package domain

import "context"

// UpstreamPort is the identity service seam the pipeline calls through.
// A lookup that cleanly resolves to "no such user" returns found=false
// with a nil error; errors are reserved for classified failures
type UpstreamPort interface {
	ByID(ctx context.Context, id int64) (CandidateRecord, bool, error)
	ByName(ctx context.Context, name string) (CandidateRecord, bool, error)
	Search(ctx context.Context, query string, limit int) ([]CandidateRecord, error)
}

// ServicePort is the resolve surface exposed to transports
type ServicePort interface {
	VerifyExact(ctx context.Context, sourceAddr string, kind Kind, value string) (VerifyResult, error)
	SearchFuzzy(ctx context.Context, sourceAddr, query string, limit int) (SearchResult, error)
}
