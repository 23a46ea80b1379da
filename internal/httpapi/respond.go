// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/palladiumhq/identity/internal/auth"
)

type messageResponse struct {
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return oops.Errorf("request body required")
	}
	defer r.Body.Close() //nolint:errcheck

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return oops.Wrap(err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps a service error to a status code and a user-safe
// message. The message comes from the error's public annotation; internal
// detail never reaches the wire.
func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	respondJSON(w, status, messageResponse{Message: publicMessage(err, http.StatusText(status))})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrGone):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error, fallback string) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg := oopsErr.Public(); msg != "" {
			return msg
		}
	}
	return fallback
}
