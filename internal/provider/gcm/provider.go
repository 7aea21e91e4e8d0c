package gcm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tispr/loopback-component-push/pkg/push"
)

// Sender defines the injected send capability: it delivers a built message
// to an ordered list of registration IDs and returns the gateway's result.
// The provider never performs network I/O itself, so this interface is the
// sole collaborator boundary (and the mocking seam for unit tests).
type Sender interface {
	Send(ctx context.Context, msg *Message, registrationIDs []string) (*Response, error)
}

// Provider dispatches notifications through the GCM multicast API and
// reconciles the gateway's positional result array against the token list.
// It holds no mutable state across calls; concurrent use is safe.
type Provider struct {
	sender Sender
	logger *slog.Logger

	// Clock supplies "now" for converting absolute expiration times into
	// relative time-to-live values. Overridable in tests.
	Clock func() time.Time
}

// NewProvider creates a GCM provider on top of the given sender.
func NewProvider(sender Sender, logger *slog.Logger) *Provider {
	return &Provider{
		sender: sender,
		logger: logger.With("component", "GCMProvider"),
		Clock:  time.Now,
	}
}

// PushNotification sends the notification to one or more device tokens and
// classifies every per-token outcome into the returned receipt.
//
// A non-nil error means no receipt exists: either the transport failed (the
// error is the transport's, wrapped) or the gateway broke its positional
// contract. Per-token failures never surface here; they are batched in the
// receipt, where gone tokens and recoverable failures are independent,
// possibly co-occurring classes.
func (p *Provider) PushNotification(ctx context.Context, n *push.Notification, tokens ...string) (*push.Receipt, error) {
	if len(tokens) == 0 {
		return &push.Receipt{}, nil
	}

	msg := NewMessage(n, p.Clock())

	resp, err := p.sender.Send(ctx, msg, tokens)
	if err != nil {
		return nil, fmt.Errorf("gcm transport failed: %w", err)
	}

	receipt, err := p.correlate(tokens, resp)
	if err != nil {
		return nil, err
	}

	if len(receipt.GoneTokens) > 0 || len(receipt.Failures) > 0 {
		p.logger.Info("GCM batch partially failed",
			"success", receipt.SuccessCount,
			"gone", len(receipt.GoneTokens),
			"failed", len(receipt.Failures),
		)
	}
	return receipt, nil
}

// correlate walks the result array and the token list pairwise by index.
// The ordering is the gateway's contract and is trusted absolutely; a
// length mismatch would silently misattribute outcomes to the wrong
// tokens, so it fails the call instead.
func (p *Provider) correlate(tokens []string, resp *Response) (*push.Receipt, error) {
	if len(resp.Results) != len(tokens) {
		return nil, fmt.Errorf("gcm protocol violation: %d results for %d tokens", len(resp.Results), len(tokens))
	}

	receipt := &push.Receipt{}
	for i, res := range resp.Results {
		switch {
		case res.Error == "":
			receipt.SuccessCount++
		case res.Error == ErrorNotRegistered:
			receipt.GoneTokens = append(receipt.GoneTokens, tokens[i])
		default:
			receipt.Failures = append(receipt.Failures, push.DeliveryFailure{
				Token: tokens[i],
				Code:  res.Error,
			})
		}
	}
	return receipt, nil
}
