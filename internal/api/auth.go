// ABOUTME: API key middleware for the management API
// ABOUTME: Constant-time comparison; the admin key satisfies read endpoints

package api

import (
	"crypto/subtle"
	"net/http"
)

const apiKeyHeader = "X-Api-Key"

func keyMatches(presented, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// requireRead admits requests carrying the read key or the admin key.
func (s *Server) requireRead(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(apiKeyHeader)
		if !keyMatches(presented, s.readKey) && !keyMatches(presented, s.adminKey) {
			s.sendJSONError(w, http.StatusUnauthorized, "invalid or missing api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin admits only the admin key.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(apiKeyHeader)
		if presented == "" {
			s.sendJSONError(w, http.StatusUnauthorized, "invalid or missing api key")
			return
		}
		if !keyMatches(presented, s.adminKey) {
			s.sendJSONError(w, http.StatusForbidden, "admin key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
