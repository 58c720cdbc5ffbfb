// Package server middleware for authentication and CORS
package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/command-tender/backend/config"
	"github.com/onnwee/command-tender/backend/telemetry"
)

// authConfig holds the shared secret for write endpoints
type authConfig struct {
	apiKey  string
	enabled bool
}

// loadAuthConfig reads auth configuration from the service config
func loadAuthConfig(cfg *config.Config) *authConfig {
	key := strings.TrimSpace(cfg.APIKey)
	enabled := key != ""
	if !enabled {
		slog.Warn("COMMANDS_API_KEY not configured - all write endpoints will reject requests")
	}
	return &authConfig{apiKey: key, enabled: enabled}
}

// bearerAuth protects write endpoints with "Authorization: Bearer <secret>".
// Without a configured secret every request is rejected.
func bearerAuth(next http.Handler, cfg *authConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.enabled {
			if token, ok := bearerToken(r); ok && subtle.ConstantTimeCompare([]byte(token), []byte(cfg.apiKey)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}

		telemetry.RecordAuthFailure()
		w.Header().Set("WWW-Authenticate", `Bearer realm="commands"`)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		telemetry.LoggerWithCorr(r.Context()).Warn("command api auth failed",
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.Bool("secret_configured", cfg.enabled))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// corsConfig holds CORS configuration
type corsConfig struct {
	allowedOrigins []string
	permissive     bool // True for dev mode (allow all), false for production (restricted)
}

// loadCORSConfig reads CORS configuration from the service config
func loadCORSConfig(cfg *config.Config) *corsConfig {
	permissive := cfg.CORSIsPermissive()
	if !permissive && len(cfg.CORSAllowedOrigins) == 0 {
		slog.Warn("CORS restricted mode enabled but no CORS_ALLOWED_ORIGINS configured - all CORS requests will be blocked")
	}
	return &corsConfig{
		allowedOrigins: cfg.CORSAllowedOrigins,
		permissive:     permissive,
	}
}

// withCORSConfig wraps a handler with CORS headers based on configuration
func withCORSConfig(next http.Handler, cfg *corsConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if cfg.permissive {
			// Dev mode: permissive CORS (allow all)
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Correlation-ID")
		} else if origin != "" && isOriginAllowed(origin, cfg.allowedOrigins) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Correlation-ID")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isOriginAllowed checks if an origin is in the allowed list
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if origin == allowed {
			return true
		}
		// Support wildcard subdomains (e.g., "*.example.com")
		if strings.HasPrefix(allowed, "*.") {
			domain := allowed[2:]
			if strings.HasSuffix(origin, "."+domain) || origin == "https://"+domain || origin == "http://"+domain {
				return true
			}
		}
	}
	return false
}
