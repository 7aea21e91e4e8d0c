package push

import (
	"errors"
	"fmt"
	"strings"
)

// DeliveryFailure is a recoverable per-token failure reported by the
// gateway: the token is still valid, delivery to it did not happen.
type DeliveryFailure struct {
	Token string
	Code  string
}

// Receipt is the classified outcome of one dispatch call. The gateway's
// positional result array has already been reconciled against the token
// list: every token sent is accounted for in exactly one of the three
// classes.
type Receipt struct {
	// SuccessCount is the number of tokens the gateway accepted.
	SuccessCount int
	// GoneTokens are permanently invalid and must be purged from storage.
	// Routine churn, not an error.
	GoneTokens []string
	// Failures are recoverable per-token errors. The caller decides
	// whether to retry, alert, or drop.
	Failures []DeliveryFailure
}

// Err renders the batched delivery failures as a single composite error,
// one line per failing token in original send order. Returns nil when
// every token either succeeded or was classified gone.
func (r *Receipt) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	lines := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		lines = append(lines, fmt.Sprintf("GCM error code: %s, deviceToken: %s", f.Code, f.Token))
	}
	return errors.New(strings.Join(lines, "\n"))
}
