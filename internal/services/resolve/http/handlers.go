// Package http provides http transport for the resolve service
package http

import (
	stdhttp "net/http"
	"strconv"

	"veriscope/internal/platform/breaker"
	perr "veriscope/internal/platform/errors"
	"veriscope/internal/platform/metrics"
	vnet "veriscope/internal/platform/net"
	vhttp "veriscope/internal/platform/net/http"
	"veriscope/internal/platform/net/http/bind"
	"veriscope/internal/platform/queue"
	"veriscope/internal/platform/ratelimit"
	"veriscope/internal/services/resolve/domain"
	svc "veriscope/internal/services/resolve/service"
)

// Deps carries what the handlers need beyond the service itself
type Deps struct {
	Svc     svc.Service
	Metrics *metrics.Collector
	Breaker *breaker.Breaker
	Queue   *queue.Queue
	Gate    *ratelimit.Gate
}

// Register mounts resolve endpoints on the given router
func Register(r vhttp.Router, d Deps) {
	h := &handlers{deps: d}

	r.Route("/v1", func(rr vhttp.Router) {
		vhttp.GetJSON(rr, "/users/verify", h.verify)
		vhttp.GetJSON(rr, "/users/search", h.search)
		vhttp.GetJSON(rr, "/meta/metrics", h.metrics)
	})
}

type handlers struct{ deps Deps }

type verifyQuery struct {
	Kind  string `json:"kind" validate:"omitempty,oneof=username user_id"`
	Value string `json:"value" validate:"required,min=1,max=64"`
}

type searchQuery struct {
	Query string `json:"q" validate:"required,min=1,max=64"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=25"`
}

// sourceAddr prefers the middleware-extracted address, falling back to the
// raw peer so the gate still keys on something when middleware is absent
func sourceAddr(r *stdhttp.Request) string {
	if addr := vnet.SourceAddr(r.Context()); addr != "" {
		return addr
	}
	return vnet.HostOnly(r.RemoteAddr)
}

func (h *handlers) verify(r *stdhttp.Request) (any, error) {
	q := verifyQuery{
		Kind:  r.URL.Query().Get("kind"),
		Value: r.URL.Query().Get("value"),
	}
	if q.Kind == "" {
		q.Kind = string(domain.KindUsername)
	}
	if err := bind.Validate(q); err != nil {
		return nil, err
	}

	return h.deps.Svc.VerifyExact(r.Context(), sourceAddr(r), domain.Kind(q.Kind), q.Value)
}

func (h *handlers) search(r *stdhttp.Request) (any, error) {
	q := searchQuery{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, perr.InvalidArgf("limit must be an integer")
		}
		q.Limit = n
	}
	if err := bind.Validate(q); err != nil {
		return nil, err
	}

	return h.deps.Svc.SearchFuzzy(r.Context(), sourceAddr(r), q.Query, q.Limit)
}

// metricsPayload is the observability snapshot for operators
type metricsPayload struct {
	Stats   metrics.Stats   `json:"stats"`
	Breaker *breaker.Status `json:"breaker,omitempty"`
	Queue   *queue.Status   `json:"queue,omitempty"`
	Gate    *gateStatus     `json:"gate,omitempty"`
}

type gateStatus struct {
	TrackedAddresses int `json:"tracked_addresses"`
}

func (h *handlers) metrics(_ *stdhttp.Request) (any, error) {
	out := metricsPayload{}
	if h.deps.Metrics != nil {
		out.Stats = h.deps.Metrics.Stats()
	}
	if h.deps.Breaker != nil {
		st := h.deps.Breaker.Status()
		out.Breaker = &st
	}
	if h.deps.Queue != nil {
		st := h.deps.Queue.Status()
		out.Queue = &st
	}
	if h.deps.Gate != nil {
		out.Gate = &gateStatus{TrackedAddresses: h.deps.Gate.Size()}
	}
	return out, nil
}
