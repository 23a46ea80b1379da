// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/palladiumhq/identity/internal/auth"
)

type updateEmailRequest struct {
	NewEmail string `json:"newEmail"`
}

type updatePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

type updateUsernameRequest struct {
	Username string `json:"username"`
}

// accountView is the serializable projection of an account. The password
// hash is deliberately absent.
type accountView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  *string   `json:"username"`
	Role      string    `json:"role"`
	AvatarURL *string   `json:"avatarUrl"`
	Activated bool      `json:"isActivated"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func viewOf(account *auth.Account) accountView {
	return accountView{
		ID:        account.ID,
		Email:     account.Email,
		Username:  account.Username,
		Role:      string(account.Role),
		AvatarURL: account.AvatarURL,
		Activated: account.Activated,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return
	}

	account, err := s.accounts.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": viewOf(account)})
}

func (s *Server) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return
	}

	var req updateEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	msg, err := s.accounts.ChangeEmail(r.Context(), id, req.NewEmail)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return
	}

	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	msg, err := s.accounts.ChangePassword(r.Context(), id, req.NewPassword)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) handleChangeUsername(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return
	}

	var req updateUsernameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	msg, err := s.accounts.ChangeUsername(r.Context(), id, req.Username)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"data": msg})
}
