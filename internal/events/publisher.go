// Package events publishes activity events about the signed-in user's
// transactions to an AMQP exchange.
package events

import (
	"context"

	"finvault/internal/core"
)

// Publisher announces transactions created through the web frontend.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, userID string, submitted core.NewTransaction, created core.Transaction) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishTransactionCreated(context.Context, string, core.NewTransaction, core.Transaction) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
