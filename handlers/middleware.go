package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"series-tracker/logging"
	"series-tracker/metrics"
	"series-tracker/models"
	"series-tracker/services"
)

type principalKey struct{}

// PrincipalFromContext returns the authenticated user stored by RequireAuth
func PrincipalFromContext(ctx context.Context) (services.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(services.Principal)
	return p, ok
}

// Authenticator resolves bearer tokens
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (services.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(auth Authenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip authentication for OPTIONS requests
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := BearerToken(r)
			if token == "" {
				writeError(w, models.ErrUnauthorized)
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, models.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[len("Bearer "):])
}

// Logging logs every request and records its latency
func Logging() mux.MiddlewareFunc {
	logger := logging.WithComponent("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			// Create a response writer wrapper to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			route := routeTemplate(r)
			metrics.ObserveHTTPRequest(route, r.Method, strconv.Itoa(wrapped.statusCode), duration.Seconds())

			level := zerolog.InfoLevel
			if wrapped.statusCode >= http.StatusInternalServerError {
				level = zerolog.ErrorLevel
			}
			logger.WithLevel(level).
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", wrapped.statusCode).
				Dur("duration", duration).
				Msg("request")
		})
	}
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
