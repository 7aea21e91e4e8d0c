package push

import (
	"context"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// Provider defines the contract for a component that can deliver a
// notification to a batch of platform-specific device tokens and account
// for every token in the returned receipt.
//
// A non-nil error means the send as a whole failed (transport failure or
// a broken gateway contract) and no per-token classification exists.
// Per-token outcomes, including permanently invalid tokens, are carried
// in the Receipt, never in the error.
type Provider interface {
	PushNotification(ctx context.Context, n *Notification, tokens ...string) (*Receipt, error)
}

// InstallationStore defines the contract for managing device installations.
// It remembers "where" to send notifications for a user, and is the
// collaborator that purges tokens a Provider reports as gone.
type InstallationStore interface {
	// Register adds or updates a device token for a user (upsert).
	Register(ctx context.Context, owner urn.URN, token string) error

	// Unregister removes a device token. It is idempotent: removing an
	// unknown token is not an error.
	Unregister(ctx context.Context, owner urn.URN, token string) error

	// Tokens returns all active device tokens for a user.
	Tokens(ctx context.Context, owner urn.URN) ([]string, error)
}
