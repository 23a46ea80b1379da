// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

// Package notify publishes notification events for the mail microservice.
// The core produces a named event and a payload; rendering and delivery
// happen elsewhere.
package notify

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/palladiumhq/identity/internal/auth"
)

// Event names consumed by the notification service.
const (
	EventWelcomeMessage       = "send-welcome-message"
	EventPasswordRecoveryCode = "send-password-recovery-code"
)

// Envelope wraps every published payload with a message id and the event
// name, so consumers can deduplicate and route.
type Envelope struct {
	MessageID string `json:"message_id"`
	Event     string `json:"event"`
	SentAt    int64  `json:"sent_at"`
	Payload   any    `json:"payload"`
}

// WelcomePayload is the send-welcome-message contract.
type WelcomePayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// RecoveryCodePayload is the send-password-recovery-code contract.
type RecoveryCodePayload struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Username string `json:"username"`
}

// Transport delivers an encoded event to the broker. *Bus implements it;
// tests substitute a recorder.
type Transport interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Publisher implements auth.Notifier over a Transport. Payloads are
// checked for completeness locally, before anything is published.
type Publisher struct {
	transport Transport
	prefix    string
}

// NewPublisher creates a Publisher. The prefix namespaces subjects on the
// broker, e.g. "notification".
func NewPublisher(transport Transport, prefix string) (*Publisher, error) {
	if transport == nil {
		return nil, oops.Errorf("transport is required")
	}
	if prefix == "" {
		prefix = "notification"
	}
	return &Publisher{transport: transport, prefix: prefix}, nil
}

// PublishWelcome emits the send-welcome-message event.
func (p *Publisher) PublishWelcome(ctx context.Context, email, username string) error {
	if email == "" {
		return oops.Code("NOTIFY_PAYLOAD_INCOMPLETE").
			With("event", EventWelcomeMessage).
			Public("Payload is missing").
			Wrapf(auth.ErrBadRequest, "empty email in payload")
	}
	return p.publish(ctx, EventWelcomeMessage, WelcomePayload{Email: email, Username: username})
}

// PublishRecoveryCode emits the send-password-recovery-code event.
func (p *Publisher) PublishRecoveryCode(ctx context.Context, email, code, username string) error {
	if email == "" || code == "" {
		return oops.Code("NOTIFY_PAYLOAD_INCOMPLETE").
			With("event", EventPasswordRecoveryCode).
			Public("Payload is missing").
			Wrapf(auth.ErrBadRequest, "empty email or code in payload")
	}
	return p.publish(ctx, EventPasswordRecoveryCode, RecoveryCodePayload{Email: email, Code: code, Username: username})
}

func (p *Publisher) publish(ctx context.Context, event string, payload any) error {
	env := Envelope{
		MessageID: ulid.Make().String(),
		Event:     event,
		SentAt:    time.Now().UnixMilli(),
		Payload:   payload,
	}
	if err := p.transport.Publish(ctx, p.prefix+"."+event, env); err != nil {
		return oops.Code("NOTIFY_PUBLISH_FAILED").With("event", event).Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.Notifier = (*Publisher)(nil)
