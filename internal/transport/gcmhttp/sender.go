// Package gcmhttp implements the gcm.Sender capability against the legacy
// GCM HTTP endpoint. Network-level retry policy lives here, below the
// provider's classification logic.
package gcmhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tispr/loopback-component-push/internal/provider/gcm"
)

// DefaultEndpoint is the legacy multicast send URL.
const DefaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// Config holds the gateway credentials and transport tuning.
type Config struct {
	// ServerKey authorizes requests against the gateway. Required.
	ServerKey string
	// Endpoint overrides DefaultEndpoint (used by tests and proxies).
	Endpoint string
	// Timeout bounds a single HTTP attempt. Defaults to 10s.
	Timeout time.Duration
	// MaxRetries bounds retries of transient failures. Defaults to 3.
	MaxRetries uint64
	// Client overrides the HTTP client (injectable for tests).
	Client *http.Client
}

type Sender struct {
	serverKey  string
	endpoint   string
	client     *http.Client
	maxRetries uint64
	logger     *slog.Logger
}

// NewSender creates a configured sender. It fails fast when the server key
// is missing rather than letting every send 401.
func NewSender(cfg Config, logger *slog.Logger) (*Sender, error) {
	if cfg.ServerKey == "" {
		return nil, fmt.Errorf("gcm server key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Sender{
		serverKey:  cfg.ServerKey,
		endpoint:   cfg.Endpoint,
		client:     client,
		maxRetries: cfg.MaxRetries,
		logger:     logger.With("component", "GCMSender"),
	}, nil
}

// Send posts the message to the gateway for the given registration IDs and
// decodes the multicast response. Network errors and 5xx responses are
// retried with exponential backoff; 4xx responses are permanent. The IDs
// always travel as registration_ids so the response stays positional even
// for a single token.
func (s *Sender) Send(ctx context.Context, msg *gcm.Message, registrationIDs []string) (*gcm.Response, error) {
	wire := *msg
	wire.RegistrationIDs = registrationIDs

	body, err := json.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gcm message: %w", err)
	}

	var gcmResp *gcm.Response
	attempt := func() error {
		resp, err := s.post(ctx, body)
		if err != nil {
			s.logger.Warn("GCM request failed, will retry", "err", err)
			return err
		}
		gcmResp = resp
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return gcmResp, nil
}

func (s *Sender) post(ctx context.Context, body []byte) (*gcm.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode >= 500:
		// The gateway asks for a retry on 5xx.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("gcm returned status %d", resp.StatusCode)
	default:
		// 400 means a malformed request, 401 bad credentials; retrying
		// cannot help.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, backoff.Permanent(fmt.Errorf("gcm returned status %d", resp.StatusCode))
	}

	var decoded gcm.Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode gcm response: %w", err))
	}
	return &decoded, nil
}
