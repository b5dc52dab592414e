package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// userIDKey is the context key for the authenticated user id.
type userIDKey struct{}

// userIDHeader carries the caller's identity, set by the auth layer in
// front of this service (the upload widget's auth provider issues it).
const userIDHeader = "X-User-ID"

// requireUser extracts the caller's identity and rejects anonymous
// requests. Handlers behind it read the id with userID(r.Context()).
func requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(userIDHeader)
		if id == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+userIDHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, id)
		next(w, r.WithContext(ctx))
	}
}

// userID returns the authenticated user id stored by requireUser.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// loggingMiddleware logs all HTTP requests with method, path, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// recoveryMiddleware recovers from panics and returns 500 Internal Server Error.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// chain applies middleware in order: first middleware wraps outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
