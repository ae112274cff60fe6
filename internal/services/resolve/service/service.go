// Package service orchestrates the resolve pipeline: admission gate, cache,
// circuit breaker, outbound queue, retrying upstream fetch, and ranking
package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"veriscope/internal/core/rank"
	"veriscope/internal/platform/breaker"
	"veriscope/internal/platform/cache"
	perr "veriscope/internal/platform/errors"
	"veriscope/internal/platform/logger"
	"veriscope/internal/platform/metrics"
	"veriscope/internal/platform/queue"
	"veriscope/internal/platform/ratelimit"
	"veriscope/internal/platform/retry"
	"veriscope/internal/services/resolve/domain"
)

// Endpoint labels recorded to the metrics collector
const (
	endpointVerify = "verify"
	endpointSearch = "search"
)

// Exact lookups dispatch ahead of fuzzy searches when the queue is contended
const (
	priorityVerify = 1
	prioritySearch = 0
)

// Service defines the resolve service contract
type Service interface {
	domain.ServicePort
}

// Deps carries the pipeline components the service composes.
// Every component is an explicit instance so tests can build isolated ones
type Deps struct {
	Gate     *ratelimit.Gate
	Cache    *cache.Tiered
	Breaker  *breaker.Breaker
	Queue    *queue.Queue
	Retry    retry.Options
	Upstream domain.UpstreamPort
	Metrics  *metrics.Collector
}

// Svc implements the resolve service
type Svc struct {
	gate     *ratelimit.Gate
	cache    *cache.Tiered
	breaker  *breaker.Breaker
	queue    *queue.Queue
	retry    retry.Options
	upstream domain.UpstreamPort
	metrics  *metrics.Collector
	ranker   *rank.Engine
	log      logger.Logger
	now      func() time.Time
}

// New constructs a resolve service
func New(d Deps) *Svc {
	if d.Upstream == nil {
		panic("resolve.Service requires a non nil UpstreamPort")
	}
	if d.Gate == nil {
		d.Gate = ratelimit.New(ratelimit.Options{})
	}
	if d.Cache == nil {
		d.Cache = cache.NewTiered(nil, nil)
	}
	if d.Breaker == nil {
		d.Breaker = breaker.New(breaker.Options{})
	}
	if d.Queue == nil {
		d.Queue = queue.New(queue.Options{})
	}
	if d.Retry.MaxRetries == 0 {
		d.Retry.MaxRetries = 2
	}
	return &Svc{
		gate:     d.Gate,
		cache:    d.Cache,
		breaker:  d.Breaker,
		queue:    d.Queue,
		retry:    d.Retry,
		upstream: d.Upstream,
		metrics:  d.Metrics,
		ranker:   rank.New(),
		log:      *logger.Named("resolve"),
		now:      time.Now,
	}
}

// VerifyExact resolves one identity by exact username or numeric id
func (s *Svc) VerifyExact(ctx context.Context, sourceAddr string, kind domain.Kind, value string) (domain.VerifyResult, error) {
	start := s.now()

	if !kind.Valid() {
		err := perr.InvalidArgf("unknown lookup kind %q", kind)
		s.observe(endpointVerify, start, false, err)
		return domain.VerifyResult{}, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		err := perr.InvalidArgf("value must not be empty")
		s.observe(endpointVerify, start, false, err)
		return domain.VerifyResult{}, err
	}

	var id int64
	if kind == domain.KindUserID {
		var convErr error
		id, convErr = strconv.ParseInt(value, 10, 64)
		if convErr != nil || id <= 0 {
			err := perr.InvalidArgf("user id must be a positive integer")
			s.observe(endpointVerify, start, false, err)
			return domain.VerifyResult{}, err
		}
	}

	if err := s.admit(sourceAddr); err != nil {
		s.observe(endpointVerify, start, false, err)
		return domain.VerifyResult{}, err
	}

	normalized := strings.ToLower(value)
	fp := cache.Fingerprint("verify", map[string]any{"kind": string(kind), "value": normalized})
	ttl := cache.TTLFor(cache.Classify(value))

	out, hit, err := cache.WithCache(ctx, s.cache, fp, ttl, func(ctx context.Context) (domain.VerifyResult, error) {
		return s.fetchExact(ctx, kind, normalized, id)
	})
	s.observe(endpointVerify, start, hit, err)
	if err != nil {
		return domain.VerifyResult{}, err
	}
	out.FromCache = hit
	return out, nil
}

// SearchFuzzy runs a keyword search and ranks the raw candidates.
// The raw candidate list is what gets cached; ranking runs per request
func (s *Svc) SearchFuzzy(ctx context.Context, sourceAddr, query string, limit int) (domain.SearchResult, error) {
	start := s.now()

	query = strings.TrimSpace(query)
	if query == "" {
		err := perr.InvalidArgf("query must not be empty")
		s.observe(endpointSearch, start, false, err)
		return domain.SearchResult{}, err
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 25 {
		limit = 25
	}

	if err := s.admit(sourceAddr); err != nil {
		s.observe(endpointSearch, start, false, err)
		return domain.SearchResult{}, err
	}

	normalized := strings.ToLower(query)
	fp := cache.Fingerprint("search", map[string]any{"q": normalized, "limit": limit})
	ttl := cache.TTLFor(cache.Classify(query))

	cands, hit, err := cache.WithCache(ctx, s.cache, fp, ttl, func(ctx context.Context) ([]domain.CandidateRecord, error) {
		return s.fetchSearch(ctx, query, limit)
	})
	s.observe(endpointSearch, start, hit, err)
	if err != nil {
		return domain.SearchResult{}, err
	}

	return domain.SearchResult{
		Results:   s.rankCandidates(query, cands, limit),
		FromCache: hit,
	}, nil
}

// admit runs the inbound gate, mapping a rejection to a classified error
// carrying the time until the caller's window resets
func (s *Svc) admit(sourceAddr string) error {
	d := s.gate.Check(sourceAddr)
	if d.Allowed {
		return nil
	}
	err := perr.AdmissionRejectedf("%s", d.Message)
	if wait := d.ResetAt.Sub(s.now()); wait > 0 {
		err = perr.WithRetryAfter(err, wait)
	}
	return err
}

// fetchExact is the expensive path behind the cache: breaker gates queue
// admission, the queue shapes outbound load, and retries happen inside
// one queued unit of work
func (s *Svc) fetchExact(ctx context.Context, kind domain.Kind, name string, id int64) (domain.VerifyResult, error) {
	var out domain.VerifyResult
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		return s.queue.Do(ctx, priorityVerify, func(ctx context.Context) error {
			return retry.Do(ctx, s.retry, func(ctx context.Context) error {
				var (
					rec   domain.CandidateRecord
					found bool
					err   error
				)
				if kind == domain.KindUserID {
					rec, found, err = s.upstream.ByID(ctx, id)
				} else {
					rec, found, err = s.upstream.ByName(ctx, name)
				}
				if err != nil {
					return err
				}
				out = domain.VerifyResult{Found: found}
				if found {
					out.Record = &rec
				}
				return nil
			})
		})
	})
	if err != nil {
		return domain.VerifyResult{}, err
	}
	return out, nil
}

func (s *Svc) fetchSearch(ctx context.Context, query string, limit int) ([]domain.CandidateRecord, error) {
	var out []domain.CandidateRecord
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		return s.queue.Do(ctx, prioritySearch, func(ctx context.Context) error {
			return retry.Do(ctx, s.retry, func(ctx context.Context) error {
				cands, err := s.upstream.Search(ctx, query, limit)
				if err != nil {
					return err
				}
				out = cands
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Svc) rankCandidates(query string, cands []domain.CandidateRecord, limit int) []domain.ScoredCandidate {
	rc := make([]rank.Candidate, 0, len(cands))
	for _, c := range cands {
		rc = append(rc, rank.Candidate{
			ID:          c.ID,
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Verified:    c.Verified,
			Created:     c.Created,
			Description: c.Description,
			Banned:      c.Banned,
		})
	}

	scored := s.ranker.Rank(query, rc)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	out := make([]domain.ScoredCandidate, 0, len(scored))
	for _, sc := range scored {
		out = append(out, domain.ScoredCandidate{
			Record: domain.CandidateRecord{
				ID:          sc.Candidate.ID,
				Name:        sc.Candidate.Name,
				DisplayName: sc.Candidate.DisplayName,
				Verified:    sc.Candidate.Verified,
				Created:     sc.Candidate.Created,
				Description: sc.Candidate.Description,
				Banned:      sc.Candidate.Banned,
			},
			Confidence: sc.Confidence,
			Signals:    sc.Signals,
			Rationale:  sc.Rationale,
		})
	}
	return out
}

// observe records one pipeline invocation; a nil collector means metrics are off
func (s *Svc) observe(endpoint string, start time.Time, cacheHit bool, err error) {
	if s.metrics == nil {
		return
	}
	rec := metrics.Record{
		Endpoint: endpoint,
		Outcome:  metrics.OutcomeOK,
		Latency:  s.now().Sub(start),
		CacheHit: cacheHit,
	}
	if err != nil {
		code := perr.CodeOf(err)
		rec.ErrorCode = code.String()
		switch code {
		case perr.ErrorCodeAdmissionRejected:
			rec.Outcome = metrics.OutcomeRejected
			rec.RateLimited = true
		case perr.ErrorCodeRateLimited:
			rec.Outcome = metrics.OutcomeError
			rec.RateLimited = true
		default:
			rec.Outcome = metrics.OutcomeError
		}
	}
	s.metrics.Observe(rec)
}
