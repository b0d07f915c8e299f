package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openvault/ledger-node/log"
)

// DisabledLogging is a global flag to disable logging middleware
var DisabledLogging = false

// jsonRegex matches common JSON starting patterns
var jsonRegex = regexp.MustCompile(`^\s*[\[{]`)

type contextKey string

// userIDKey carries the authenticated user through the request context.
const userIDKey contextKey = "userID"

// UserID returns the authenticated user of the request, or empty.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// authMiddleware authenticates requests with a bearer JWT signed with
// the HS256 secret, taking the user from the "sub" claim. With an empty
// secret the middleware runs in development mode and trusts the
// X-User-ID header instead.
func authMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				if id := r.Header.Get("X-User-ID"); id != "" {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			authHeader := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenStr == "" {
				ErrUnauthorized.Withf("missing bearer token").Write(w)
				return
			}
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				ErrUnauthorized.Withf("invalid token").Write(w)
				return
			}
			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				ErrUnauthorized.Withf("token has no subject").Write(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, sub)))
		})
	}
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	MaxBodyLog       int
	ExcludedPrefixes []string // URL path prefixes to exclude from logging
}

// DefaultLoggingConfig returns a LoggingConfig with sensible defaults
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		MaxBodyLog:       512,
		ExcludedPrefixes: LogExcludedPrefixes,
	}
}

// shouldSkipLogging checks if the request should be skipped from logging
func (lc LoggingConfig) shouldSkipLogging(r *http.Request) bool {
	// Skip if not in debug mode
	if log.Level() != log.LogLevelDebug {
		return true
	}
	// Skip if logging is disabled
	if DisabledLogging {
		return true
	}
	// Check if path matches any excluded prefix
	path := r.URL.Path
	for _, prefix := range lc.ExcludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.statusCode == 0 {
		rw.statusCode = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

// loggingMiddleware provides request/response logging for debugging
func loggingMiddleware(maxBodyLog int) func(http.Handler) http.Handler {
	config := LoggingConfig{
		MaxBodyLog:       maxBodyLog,
		ExcludedPrefixes: DefaultLoggingConfig().ExcludedPrefixes,
	}
	return loggingMiddlewareWithConfig(config)
}

// loggingMiddlewareWithConfig provides request/response logging with custom configuration
func loggingMiddlewareWithConfig(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip logging on specific endpoints if configured (e.g., for health checks)
			if config.shouldSkipLogging(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			// Prepare to read body if needed
			var bodyStr string

			if r.Body != nil && r.ContentLength > 0 {
				// Read body into buffer
				bodyBytes, err := io.ReadAll(r.Body)
				if err != nil {
					log.Error(err)
					http.Error(w, "unable to read request body", http.StatusInternalServerError)
					return
				}

				// Restore body for handler
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

				// Check if it looks like JSON (starts with { or [ after optional whitespace)
				if jsonRegex.Match(bodyBytes) {
					bodyStr = string(bodyBytes)
					if len(bodyStr) > config.MaxBodyLog {
						bodyStr = bodyStr[:config.MaxBodyLog] + "..."
					}
					// Remove quotes for cleaner logs
					bodyStr = strings.ReplaceAll(bodyStr, "\"", "")
				}
			}

			// Wrap response writer
			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     0,
			}

			// Log request
			log.Debugw("api request",
				"method", r.Method,
				"url", r.URL.String(),
				"body", bodyStr,
			)

			// Process request
			next.ServeHTTP(wrapped, r)

			// Log response
			duration := time.Since(start)
			log.Debugw("api response",
				"method", r.Method,
				"url", r.URL.String(),
				"status", wrapped.statusCode,
				"took", duration.String(),
			)
		})
	}
}
