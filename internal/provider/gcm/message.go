// Package gcm implements the push.Provider contract against the legacy
// GCM multicast JSON API: translation of a generic notification into the
// provider wire format, and positional correlation of the gateway's
// per-token result array.
package gcm

// Result error codes the gateway reports per token.
// See https://developers.google.com/cloud-messaging/http-server-ref#error-codes
const (
	// ErrorNotRegistered means the token will never again accept delivery
	// and must be purged from storage. This is the only code classified
	// as permanent invalidation.
	ErrorNotRegistered = "NotRegistered"

	ErrorInvalidRegistration = "InvalidRegistration"
	ErrorMismatchSenderID    = "MismatchSenderId"
	ErrorUnavailable         = "Unavailable"
)

// Message is the multicast JSON payload sent to the gateway.
type Message struct {
	RegistrationIDs []string       `json:"registration_ids,omitempty"`
	CollapseKey     string         `json:"collapse_key,omitempty"`
	DelayWhileIdle  *bool          `json:"delay_while_idle,omitempty"`
	TimeToLive      *int           `json:"time_to_live,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	Notification    *Notification  `json:"notification,omitempty"`
}

// Notification is the platform decoration block of a Message. Absent
// fields are omitted from the wire, never sent as null.
type Notification struct {
	Title       string `json:"title,omitempty"`
	Body        string `json:"body,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Sound       string `json:"sound,omitempty"`
	Badge       *int   `json:"badge,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Color       string `json:"color,omitempty"`
	ClickAction string `json:"click_action,omitempty"`
}

// Response is the gateway's answer to a multicast send.
//
// Results[i] corresponds to the i-th registration ID of the request; this
// positional contract is the only way to know which token a result
// belongs to.
type Response struct {
	MulticastID  int64    `json:"multicast_id"`
	Success      int      `json:"success"`
	Failure      int      `json:"failure"`
	CanonicalIDs int      `json:"canonical_ids"`
	Results      []Result `json:"results"`
}

// Result is the outcome for a single token: a message ID on success, an
// error code on failure.
type Result struct {
	MessageID      string `json:"message_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	Error          string `json:"error,omitempty"`
}
