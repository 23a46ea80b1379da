// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

// Package httpapi exposes the identity service over HTTP: JSON handlers
// for credential and account operations, the browser redirect flow for
// third-party sign-in, and the refresh-token cookie contract. Handlers
// translate between the wire and internal/auth; no business rules live
// here.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/palladiumhq/identity/internal/auth"
	"github.com/palladiumhq/identity/internal/observability"
)

// Config controls transport behaviour for the HTTP handlers.
type Config struct {
	// FrontendOrigin is the base URL the OAuth callback redirects to,
	// e.g. "https://app.example.com".
	FrontendOrigin string

	// CookieMaxAge bounds the lifetime of the refresh-token cookie.
	CookieMaxAge time.Duration
}

// Server wires the auth services into HTTP handlers.
type Server struct {
	validator  *auth.CredentialValidator
	sessions   *auth.SessionManager
	recovery   *auth.RecoveryManager
	reconciler *auth.IdentityReconciler
	accounts   *auth.AccountService
	issuer     *auth.TokenIssuer
	provider   IdentityProvider
	metrics    *observability.Metrics
	logger     *slog.Logger
	config     Config
}

// NewServer creates the HTTP server layer. The identity provider and
// metrics are optional; without a provider the OAuth routes respond 404.
func NewServer(
	validator *auth.CredentialValidator,
	sessions *auth.SessionManager,
	recovery *auth.RecoveryManager,
	reconciler *auth.IdentityReconciler,
	accounts *auth.AccountService,
	issuer *auth.TokenIssuer,
	provider IdentityProvider,
	metrics *observability.Metrics,
	logger *slog.Logger,
	cfg Config,
) (*Server, error) {
	if validator == nil {
		return nil, oops.Errorf("credential validator is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if recovery == nil {
		return nil, oops.Errorf("recovery manager is required")
	}
	if reconciler == nil {
		return nil, oops.Errorf("identity reconciler is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CookieMaxAge <= 0 {
		cfg.CookieMaxAge = 7 * 24 * time.Hour
	}

	return &Server{
		validator:  validator,
		sessions:   sessions,
		recovery:   recovery,
		reconciler: reconciler,
		accounts:   accounts,
		issuer:     issuer,
		provider:   provider,
		metrics:    metrics,
		logger:     logger,
		config:     cfg,
	}, nil
}

// Routes constructs the chi router containing all endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.With(s.requireRefresh).Post("/refresh", s.handleRefresh)
		r.With(s.requireAccess).Post("/logout", s.handleLogout)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/reset-password", s.handleResetPassword)
		r.With(s.requireAccess).Patch("/email", s.handleChangeEmail)
		r.With(s.requireAccess).Patch("/password", s.handleChangePassword)

		if s.provider != nil {
			r.Get("/google/login", s.handleGoogleLogin)
			r.Get("/google/callback", s.handleGoogleCallback)
		}
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(s.requireAccess)
		r.Get("/me", s.handleGetProfile)
		r.Patch("/username", s.handleChangeUsername)
	})

	return r
}
