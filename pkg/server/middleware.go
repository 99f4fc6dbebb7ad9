// Copyright 2025 Near Private Payroll
//
// HTTP Middleware
// Request correlation ids, request logging, owner authorization

package server

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request-id"

// RequestIDFromContext returns the request id attached by WithRequestID, or
// "" outside an instrumented request.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID attaches a correlation id to every request. An inbound
// X-Request-ID is honored so callers can thread their own ids through the
// audit trail; otherwise a fresh UUID is minted.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithLogging logs one line per request: method, path, and elapsed time.
// Request bodies are never logged; seal and journal bytes must not reach
// the log stream.
func WithLogging(logger *log.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Printf("%s %s id=%s elapsed=%s", r.Method, r.URL.Path, RequestIDFromContext(r.Context()), time.Since(start))
	})
}

// authorizeOwner checks the bearer token guarding owner-restricted
// endpoints. An empty configured token locks those endpoints entirely.
func (h *VerifyHandlers) authorizeOwner(r *http.Request) bool {
	if h.ownerToken == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.ownerToken)) == 1
}
