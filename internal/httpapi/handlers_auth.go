// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/palladiumhq/identity/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email             string `json:"email"`
	NewPassword       string `json:"newPassword"`
	ResetPasswordCode string `json:"resetPasswordCode"`
}

// sessionResponse is the body of every session-starting endpoint. The
// refresh token travels only in the cookie, never here.
type sessionResponse struct {
	ID          int64  `json:"id"`
	AccessToken string `json:"accessToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	account, err := s.accounts.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	// Registration doubles as the first login on this device.
	tokens, err := s.sessions.StartSession(r.Context(), account.ID, clientIP(r), r.UserAgent())
	if err != nil {
		s.logger.Error("session start after register failed", "account_id", account.ID, "error", err)
		respondError(w, err)
		return
	}

	s.setRefreshCookie(w, tokens.RefreshToken)
	respondJSON(w, http.StatusCreated, sessionResponse{ID: tokens.AccountID, AccessToken: tokens.AccessToken})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	id, err := s.validator.Validate(r.Context(), req.Email, req.Password)
	if err != nil {
		// An unknown email and a wrong password produce the same response
		// so the endpoint cannot be used to enumerate accounts.
		if errors.Is(err, auth.ErrNotFound) || errors.Is(err, auth.ErrUnauthorized) {
			s.countLogin("denied")
			respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Incorrect email or password"})
			return
		}
		s.countLogin("error")
		respondError(w, err)
		return
	}

	tokens, err := s.sessions.StartSession(r.Context(), id, clientIP(r), r.UserAgent())
	if err != nil {
		s.countLogin("error")
		respondError(w, err)
		return
	}

	s.countLogin("ok")
	s.setRefreshCookie(w, tokens.RefreshToken)
	respondJSON(w, http.StatusOK, sessionResponse{ID: tokens.AccountID, AccessToken: tokens.AccessToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid Refresh Token"})
		return
	}

	// Rotation: the presented token was already consumed by the guard;
	// a fresh pair replaces the stored hash for this device.
	tokens, err := s.sessions.StartSession(r.Context(), id, clientIP(r), r.UserAgent())
	if err != nil {
		s.countRefresh("error")
		respondError(w, err)
		return
	}

	s.countRefresh("ok")
	s.setRefreshCookie(w, tokens.RefreshToken)
	respondJSON(w, http.StatusOK, sessionResponse{ID: tokens.AccountID, AccessToken: tokens.AccessToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return
	}

	if err := s.sessions.Logout(r.Context(), id, clientIP(r), r.UserAgent()); err != nil {
		respondError(w, err)
		return
	}

	s.clearRefreshCookie(w)
	respondJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	outcome, err := s.recovery.RequestRecovery(r.Context(), req.Email)
	if err != nil {
		s.countRecovery("error")
		respondError(w, err)
		return
	}

	if outcome == auth.RecoveryAlreadyActive {
		s.countRecovery("active")
		respondJSON(w, http.StatusOK, messageResponse{Message: "You already have a valid recovery code in your email."})
		return
	}

	s.countRecovery("sent")
	respondJSON(w, http.StatusOK, messageResponse{Message: "Recovery code was sent to your email"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	if err := s.recovery.ResetPassword(r.Context(), req.Email, req.ResetPasswordCode, req.NewPassword); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "Password updated successfully"})
}

func (s *Server) countRecovery(state string) {
	if s.metrics != nil {
		s.metrics.RecoveryRequestsTotal.WithLabelValues(state).Inc()
	}
}
