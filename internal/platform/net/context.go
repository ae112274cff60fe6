// Package net provides utilities for working with request contexts
package net

import (
	"context"
	stdnet "net"

	chimw "github.com/go-chi/chi/v5/middleware"

	"veriscope/internal/platform/logger"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const keySourceAddr ctxKey = "source_addr"

// WithRequest annotates ctx with the request id and caller address.
// The logger context is enriched with the same fields
func WithRequest(ctx context.Context, reqID, sourceAddr string) context.Context {
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if sourceAddr != "" {
		ctx = context.WithValue(ctx, keySourceAddr, sourceAddr)
	}
	return logger.WithRequest(ctx, reqID, sourceAddr)
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// SourceAddr returns the caller address on the context if present
func SourceAddr(ctx context.Context) string {
	if v, ok := ctx.Value(keySourceAddr).(string); ok {
		return v
	}
	return ""
}

// HostOnly strips the port from a remote address, tolerating bare hosts
func HostOnly(remoteAddr string) string {
	host, _, err := stdnet.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
