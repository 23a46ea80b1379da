// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/palladiumhq/identity/internal/auth"
)

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	mode := auth.ReconcileMode(r.URL.Query().Get("mode"))
	if !mode.Valid() {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid mode"})
		return
	}

	// The mode rides along as OAuth state and comes back on the callback.
	http.Redirect(w, r, s.provider.AuthURL(string(mode)), http.StatusFound)
}

// handleGoogleCallback finishes the provider round trip. Outcomes are
// reported to the frontend by redirect, not status code, because the
// browser arrives here directly from the provider's consent page.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.config.FrontendOrigin == "" {
		s.logger.Error("frontend origin not configured for oauth callback")
		respondJSON(w, http.StatusInternalServerError, messageResponse{Message: "frontend origin is not set"})
		return
	}

	mode := auth.ReconcileMode(r.URL.Query().Get("state"))
	if !mode.Valid() {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid mode"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		s.countReconcile(mode, "denied")
		s.redirectAuthorize(w, r, url.Values{"error": {"user_null"}})
		return
	}

	assertion, err := s.provider.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("oauth exchange failed", "error", err)
		s.countReconcile(mode, "error")
		s.redirectAuthorize(w, r, url.Values{"error": {"unknown"}})
		return
	}

	account, err := s.reconciler.Reconcile(r.Context(), assertion, mode)
	switch {
	case errors.Is(err, auth.ErrConflict):
		s.countReconcile(mode, "conflict")
		s.redirectAuthorize(w, r, url.Values{"mode": {"signup"}, "error": {"409"}})
		return
	case errors.Is(err, auth.ErrNotFound):
		s.countReconcile(mode, "not_found")
		s.redirectAuthorize(w, r, url.Values{"mode": {"login"}, "error": {"404"}})
		return
	case err != nil:
		s.logger.Error("identity reconciliation failed", "error", err)
		s.countReconcile(mode, "error")
		s.redirectAuthorize(w, r, url.Values{"error": {"unknown"}})
		return
	}

	if account == nil || account.ID == 0 {
		s.countReconcile(mode, "error")
		s.redirectAuthorize(w, r, url.Values{"error": {"user_null"}})
		return
	}

	tokens, err := s.sessions.StartSession(r.Context(), account.ID, clientIP(r), r.UserAgent())
	if err != nil {
		s.logger.Error("session start after oauth failed", "account_id", account.ID, "error", err)
		s.countReconcile(mode, "error")
		s.redirectAuthorize(w, r, url.Values{"error": {"unknown"}})
		return
	}

	s.countReconcile(mode, "ok")
	s.setRefreshCookie(w, tokens.RefreshToken)
	s.redirectAuthorize(w, r, url.Values{
		"token": {tokens.AccessToken},
		"id":    {strconv.FormatInt(tokens.AccountID, 10)},
	})
}

func (s *Server) redirectAuthorize(w http.ResponseWriter, r *http.Request, query url.Values) {
	http.Redirect(w, r, s.config.FrontendOrigin+"/auth/authorize?"+query.Encode(), http.StatusFound)
}

func (s *Server) countReconcile(mode auth.ReconcileMode, outcome string) {
	if s.metrics != nil {
		s.metrics.ReconciliationsTotal.WithLabelValues(string(mode), outcome).Inc()
	}
}
