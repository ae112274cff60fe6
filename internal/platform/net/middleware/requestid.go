package middleware

import (
	"net/http"

	"github.com/google/uuid"

	pnet "veriscope/internal/platform/net"
)

// RequestContext assigns a request id, annotates the context with it and
// the caller address, and mirrors the id in the response header.
// A caller-supplied X-Request-ID is honored so traces line up across hops
func RequestContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			addr := pnet.HostOnly(r.RemoteAddr)

			w.Header().Set("X-Request-ID", reqID)
			ctx := pnet.WithRequest(r.Context(), reqID, addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
