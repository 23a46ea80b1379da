// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/palladiumhq/identity/internal/auth"
)

type contextKey int

const accountIDKey contextKey = iota

// accountID returns the authenticated account id stored by a guard.
func accountID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey).(int64)
	return id, ok
}

// requireAccess admits requests carrying a valid bearer access token and
// stores the subject account id in the request context.
func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
			return
		}

		id, err := s.issuer.Verify(token, auth.AccessToken)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRefresh admits requests whose refresh cookie decodes and matches
// the stored per-device hash. The token is verified cryptographically
// first, then against the session store, so a stolen-but-rotated token is
// rejected even while its signature is still valid.
func (s *Server) requireRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshCookieName)
		if err != nil || cookie.Value == "" {
			s.countRefresh("missing")
			respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid Refresh Token"})
			return
		}

		id, err := s.issuer.Verify(cookie.Value, auth.RefreshToken)
		if err != nil {
			s.countRefresh("invalid")
			respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid Refresh Token"})
			return
		}

		if _, err := s.sessions.ValidateRefresh(r.Context(), id, cookie.Value); err != nil {
			s.countRefresh("rejected")
			respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid Refresh Token"})
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) countRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.RefreshesTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

// clientIP extracts the request's client address. chi's RealIP middleware
// has already unwrapped forwarding headers where present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
