package gcm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tispr/loopback-component-push/internal/provider/gcm"
	"github.com/tispr/loopback-component-push/pkg/push"
)

// MockSender satisfies the gcm.Sender interface.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg *gcm.Message, registrationIDs []string) (*gcm.Response, error) {
	args := m.Called(ctx, msg, registrationIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gcm.Response), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPushNotification_Lifecycle(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("Happy Path - All Success", func(t *testing.T) {
		sender := new(MockSender)
		provider := gcm.NewProvider(sender, logger)
		tokens := []string{"token-1", "token-2"}

		sender.On("Send", ctx, mock.Anything, tokens).Return(&gcm.Response{
			Success: 2,
			Results: []gcm.Result{
				{MessageID: "msg-1"},
				{MessageID: "msg-2"},
			},
		}, nil)

		receipt, err := provider.PushNotification(ctx, &push.Notification{Alert: "hi"}, tokens...)

		require.NoError(t, err)
		assert.Equal(t, 2, receipt.SuccessCount)
		assert.Empty(t, receipt.GoneTokens)
		assert.Empty(t, receipt.Failures)
		assert.NoError(t, receipt.Err())
		sender.AssertExpectations(t)
	})

	t.Run("Single token normalized to a one-element batch", func(t *testing.T) {
		sender := new(MockSender)
		provider := gcm.NewProvider(sender, logger)

		sender.On("Send", ctx, mock.Anything, []string{"a-device-token"}).Return(&gcm.Response{
			Success: 1,
			Results: []gcm.Result{{MessageID: "msg-1"}},
		}, nil)

		receipt, err := provider.PushNotification(ctx, &push.Notification{Alert: "hi"}, "a-device-token")

		require.NoError(t, err)
		assert.Equal(t, 1, receipt.SuccessCount)
		sender.AssertExpectations(t)
	})

	t.Run("Transport failure surfaces verbatim, no receipt", func(t *testing.T) {
		sender := new(MockSender)
		provider := gcm.NewProvider(sender, logger)

		cause := errors.New("network down")
		sender.On("Send", ctx, mock.Anything, mock.Anything).Return(nil, cause)

		receipt, err := provider.PushNotification(ctx, &push.Notification{Alert: "hi"}, "token-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "transport failed")
		assert.Nil(t, receipt)
	})

	t.Run("Empty token list is a no-op", func(t *testing.T) {
		sender := new(MockSender)
		provider := gcm.NewProvider(sender, logger)

		receipt, err := provider.PushNotification(ctx, &push.Notification{Alert: "hi"})

		require.NoError(t, err)
		assert.Equal(t, 0, receipt.SuccessCount)
		sender.AssertNotCalled(t, "Send")
	})
}

func TestPushNotification_Correlation(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	tokens := []string{"token-1", "token-2", "token-3", "token-4", "token-5"}

	t.Run("Mixed batch splits gone tokens from recoverable failures", func(t *testing.T) {
		sender := new(MockSender)
		provider := gcm.NewProvider(sender, logger)

		// results[i] is interpreted against tokens[i]; that ordering is the
		// gateway's contract.
		sender.On("Send", ctx, mock.Anything, tokens).Return(&gcm.Response{
			Success: 1,
			Failure: 4,
			Results: []gcm.Result{
				{Error: gcm.ErrorInvalidRegistration},
				{MessageID: "msg-2"},
				{Error: gcm.ErrorMismatchSenderID},
				{Error: gcm.ErrorNotRegistered},
				{Error: gcm.ErrorMismatchSenderID},
			},
		}, nil)

		receipt, err := provider.PushNotification(ctx, &push.Notification{Alert: "hi"}, tokens...)
		require.NoError(t, err)

		// Only the exact permanent-invalidation code marks a token gone;
		// InvalidRegistration goes to the composite error instead.
		assert.Equal(t, []string{"token-4"}, receipt.GoneTokens)
		assert.Equal(t, 1, receipt.SuccessCount)
		assert.Equal(t, []push.DeliveryFailure{
			{Token: "token-1", Code: gcm.ErrorInvalidRegistration},
			{Token: "token-3", Code: gcm.ErrorMismatchSenderID},
			{Token: "token-5", Code: gcm.ErrorMismatchSenderID},
		}, receipt.Failures)

		composite := receipt.Err()
		require.Error(t, composite)
		assert.Equal(t,
			"GCM error code: InvalidRegistration, deviceToken: token-1\n"+
				"GCM error code: MismatchSenderId, deviceToken: token-3\n"+
				"GCM error code: MismatchSenderId, deviceToken: token-5",
			composite.Error(),
		)
	})

	t.Run("All tokens gone", func(t *testing.T) {
		sender := new(MockSender)
		provider := gcm.NewProvider(sender, logger)
		pair := []string{"token-1", "token-2"}

		sender.On("Send", ctx, mock.Anything, pair).Return(&gcm.Response{
			Failure: 2,
			Results: []gcm.Result{
				{Error: gcm.ErrorNotRegistered},
				{Error: gcm.ErrorNotRegistered},
			},
		}, nil)

		receipt, err := provider.PushNotification(ctx, &push.Notification{Alert: "hi"}, pair...)
		require.NoError(t, err)

		assert.Equal(t, pair, receipt.GoneTokens)
		assert.Empty(t, receipt.Failures)
		// Invalidation is routine churn, never part of the error.
		assert.NoError(t, receipt.Err())
	})

	t.Run("Result count mismatch is a fatal protocol violation", func(t *testing.T) {
		sender := new(MockSender)
		provider := gcm.NewProvider(sender, logger)

		sender.On("Send", ctx, mock.Anything, tokens).Return(&gcm.Response{
			Success: 1,
			Results: []gcm.Result{{MessageID: "msg-1"}},
		}, nil)

		receipt, err := provider.PushNotification(ctx, &push.Notification{Alert: "hi"}, tokens...)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "protocol violation")
		assert.Nil(t, receipt)
	})
}

func TestPushNotification_InjectedClock(t *testing.T) {
	ctx := context.Background()
	sender := new(MockSender)
	provider := gcm.NewProvider(sender, newTestLogger())

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	provider.Clock = func() time.Time { return now }

	expires := now.Add(45 * time.Second)

	var sent *gcm.Message
	sender.On("Send", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*gcm.Message) }).
		Return(&gcm.Response{Success: 1, Results: []gcm.Result{{MessageID: "m"}}}, nil)

	_, err := provider.PushNotification(ctx, &push.Notification{
		Alert:          "hi",
		ExpirationTime: &expires,
	}, "token-1")

	require.NoError(t, err)
	require.NotNil(t, sent)
	require.NotNil(t, sent.TimeToLive)
	assert.Equal(t, 45, *sent.TimeToLive)
}
