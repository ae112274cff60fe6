package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"veriscope/internal/platform/breaker"
	perr "veriscope/internal/platform/errors"
	"veriscope/internal/platform/metrics"
	vhttp "veriscope/internal/platform/net/http"
	"veriscope/internal/platform/queue"
	"veriscope/internal/platform/ratelimit"
	"veriscope/internal/services/resolve/domain"
)

type stubService struct {
	verifyFn func(kind domain.Kind, value string) (domain.VerifyResult, error)
	searchFn func(query string, limit int) (domain.SearchResult, error)
}

func (s *stubService) VerifyExact(_ context.Context, _ string, kind domain.Kind, value string) (domain.VerifyResult, error) {
	if s.verifyFn == nil {
		return domain.VerifyResult{}, nil
	}
	return s.verifyFn(kind, value)
}

func (s *stubService) SearchFuzzy(_ context.Context, _, query string, limit int) (domain.SearchResult, error) {
	if s.searchFn == nil {
		return domain.SearchResult{}, nil
	}
	return s.searchFn(query, limit)
}

func newTestServer(t *testing.T, d Deps) *httptest.Server {
	t.Helper()
	m := chi.NewRouter()
	Register(vhttp.AdaptChi(m), d)
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)
	return srv
}

func getEnvelope(t *testing.T, url string) (int, vhttp.Envelope, []byte) {
	t.Helper()
	resp, err := stdhttp.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var env vhttp.Envelope
	raw := json.RawMessage{}
	env.Data = &raw
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env, raw
}

func TestVerifyEndpoint(t *testing.T) {
	rec := domain.CandidateRecord{ID: 7, Name: "johndoe", DisplayName: "JohnDoe"}
	svc := &stubService{
		verifyFn: func(kind domain.Kind, value string) (domain.VerifyResult, error) {
			if kind != domain.KindUsername || value != "johndoe" {
				t.Fatalf("kind=%q value=%q", kind, value)
			}
			return domain.VerifyResult{Found: true, Record: &rec}, nil
		},
	}
	srv := newTestServer(t, Deps{Svc: svc})

	status, _, raw := getEnvelope(t, srv.URL+"/v1/users/verify?value=johndoe")
	if status != stdhttp.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var out domain.VerifyResult
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !out.Found || out.Record == nil || out.Record.ID != 7 {
		t.Fatalf("out = %+v", out)
	}
}

func TestVerifyEndpointRequiresValue(t *testing.T) {
	srv := newTestServer(t, Deps{Svc: &stubService{}})

	status, env, _ := getEnvelope(t, srv.URL+"/v1/users/verify")
	if status != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	if env.Code != perr.ErrorCodeValidation {
		t.Fatalf("code = %v", env.Code)
	}
}

func TestVerifyEndpointRejectsBadKind(t *testing.T) {
	srv := newTestServer(t, Deps{Svc: &stubService{}})

	status, _, _ := getEnvelope(t, srv.URL+"/v1/users/verify?kind=email&value=x")
	if status != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc := &stubService{
		searchFn: func(query string, limit int) (domain.SearchResult, error) {
			if query != "john" || limit != 5 {
				t.Fatalf("query=%q limit=%d", query, limit)
			}
			return domain.SearchResult{
				Results: []domain.ScoredCandidate{
					{Record: domain.CandidateRecord{ID: 1, Name: "johndoe"}, Confidence: 80},
				},
			}, nil
		},
	}
	srv := newTestServer(t, Deps{Svc: svc})

	status, _, raw := getEnvelope(t, srv.URL+"/v1/users/search?q=john&limit=5")
	if status != stdhttp.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var out domain.SearchResult
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Confidence != 80 {
		t.Fatalf("out = %+v", out)
	}
}

func TestSearchEndpointRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t, Deps{Svc: &stubService{}})

	status, _, _ := getEnvelope(t, srv.URL+"/v1/users/search?q=john&limit=abc")
	if status != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d", status)
	}
}

func TestSearchEndpointMapsRejection(t *testing.T) {
	svc := &stubService{
		searchFn: func(string, int) (domain.SearchResult, error) {
			err := perr.AdmissionRejectedf("hourly request limit reached")
			return domain.SearchResult{}, perr.WithRetryAfter(err, 90*time.Second)
		},
	}
	srv := newTestServer(t, Deps{Svc: svc})

	resp, err := stdhttp.Get(srv.URL + "/v1/users/search?q=john")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusTooManyRequests {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "90" {
		t.Fatalf("Retry-After = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	col := metrics.New(10, nil)
	col.Observe(metrics.Record{Endpoint: "verify", Outcome: metrics.OutcomeOK, Latency: 20 * time.Millisecond})

	srv := newTestServer(t, Deps{
		Svc:     &stubService{},
		Metrics: col,
		Breaker: breaker.New(breaker.Options{}),
		Queue:   queue.New(queue.Options{}),
		Gate:    ratelimit.New(ratelimit.Options{}),
	})

	status, _, raw := getEnvelope(t, srv.URL+"/v1/meta/metrics")
	if status != stdhttp.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var out struct {
		Stats   metrics.Stats   `json:"stats"`
		Breaker *breaker.Status `json:"breaker"`
		Queue   *queue.Status   `json:"queue"`
		Gate    *gateStatus     `json:"gate"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if out.Stats.Total != 1 {
		t.Fatalf("stats = %+v", out.Stats)
	}
	if out.Breaker == nil || out.Queue == nil || out.Gate == nil {
		t.Fatalf("component statuses missing: %s", raw)
	}
}
