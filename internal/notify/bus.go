// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package notify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/samber/oops"
)

// Bus wraps a NATS JetStream connection for publishing events.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewBus connects to the given NATS endpoint.
func NewBus(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, oops.Code("BUS_CONNECT_FAILED").With("url", url).Wrap(err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, oops.Code("BUS_JETSTREAM_FAILED").Wrap(err)
	}

	return &Bus{conn: nc, js: js}, nil
}

// Close drains and shuts down the underlying connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish encodes v as JSON and publishes it to the subject. A nil error
// means the broker accepted the message, not that it was delivered.
func (b *Bus) Publish(ctx context.Context, subject string, v any) error {
	if b == nil {
		return oops.Errorf("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return oops.Code("BUS_ENCODE_FAILED").With("subject", subject).Wrap(err)
	}

	if _, err := b.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return oops.Code("BUS_PUBLISH_FAILED").With("subject", subject).Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ Transport = (*Bus)(nil)
