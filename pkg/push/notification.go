// Package push contains the public interfaces and domain models for the
// push dispatch service.
package push

import (
	"time"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// Notification is the provider-agnostic notification record. Optional
// scalar fields use pointers where the zero value is meaningful (a badge
// of 0 and delayWhileIdle=false are real values, not absence).
type Notification struct {
	// Alert is the user-visible message text (becomes the body of the
	// decoration block).
	Alert string `json:"alert,omitempty"`
	// MessageFrom becomes the title of the decoration block.
	MessageFrom string `json:"messageFrom,omitempty"`

	Badge       *int   `json:"badge,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Sound       string `json:"sound,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Color       string `json:"color,omitempty"`
	ClickAction string `json:"clickAction,omitempty"`

	// DataOnly folds the decoration fields into the flat data payload
	// instead of a separate notification block.
	DataOnly bool `json:"dataOnly,omitempty"`

	// Platform delivery hints, passed through verbatim when present.
	CollapseKey    string `json:"collapseKey,omitempty"`
	DelayWhileIdle *bool  `json:"delayWhileIdle,omitempty"`

	// At most one of the expiration fields governs time-to-live.
	// ExpirationInterval is relative (seconds); ExpirationTime is absolute.
	ExpirationInterval *int       `json:"expirationInterval,omitempty"`
	ExpirationTime     *time.Time `json:"expirationTime,omitempty"`

	// Custom holds arbitrary scalar key/value pairs forwarded into the
	// data payload. Nil values are dropped; false and 0 are forwarded.
	Custom map[string]any `json:"custom,omitempty"`
}

// Request is the message consumed from the ingestion pipeline: who to
// notify, and with what. The recipient's device tokens live in the
// installation store, not in the message.
type Request struct {
	RecipientID  urn.URN      `json:"recipientId"`
	Notification Notification `json:"notification"`
}
