//go:build integration

package pushservice_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/tispr/loopback-component-push/internal/provider/gcm"
	fsStore "github.com/tispr/loopback-component-push/internal/storage/firestore"
	"github.com/tispr/loopback-component-push/pkg/push"
	"github.com/tispr/loopback-component-push/pushservice"
	"github.com/tispr/loopback-component-push/pushservice/config"
)

// stubSender fakes the gateway: it records what was sent and answers with a
// scripted positional result array, exercising the real correlator.
type stubSender struct {
	mu         sync.Mutex
	calls      int
	lastTokens []string
	results    func(tokens []string) []gcm.Result
}

func (s *stubSender) Send(_ context.Context, _ *gcm.Message, registrationIDs []string) (*gcm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastTokens = registrationIDs
	results := s.results(registrationIDs)
	return &gcm.Response{Results: results}, nil
}

func (s *stubSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSender) LastTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTokens
}

func TestPushService_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	projectID := "test-project-integ"

	// 1. Emulators
	pubsubConn := emulators.SetupPubsubEmulator(t, ctx, emulators.GetDefaultPubsubConfig(projectID))
	psClient, err := pubsub.NewClient(ctx, projectID, pubsubConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = psClient.Close() })

	fsConn := emulators.SetupFirestoreEmulator(t, ctx, emulators.GetDefaultFirestoreConfig(projectID))
	fsClient, err := firestore.NewClient(ctx, projectID, fsConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsClient.Close() })

	store := fsStore.NewInstallationStore(fsClient)

	t.Run("Full Lifecycle: Register -> Publish -> Dispatch -> Purge", func(t *testing.T) {
		topicID := "push-success-" + uuid.NewString()
		subID := topicID + "-sub"
		createPubsubResources(t, ctx, psClient, projectID, topicID, subID)

		// Gateway script: first token delivered, second permanently gone.
		sender := &stubSender{results: func(tokens []string) []gcm.Result {
			results := make([]gcm.Result, len(tokens))
			for i := range tokens {
				if i == 1 {
					results[i] = gcm.Result{Error: gcm.ErrorNotRegistered}
				} else {
					results[i] = gcm.Result{MessageID: fmt.Sprintf("msg-%d", i)}
				}
			}
			return results
		}}
		provider := gcm.NewProvider(sender, logger)

		consumerCfg := *messagepipeline.NewGooglePubsubConsumerDefaults(subID)
		consumer, err := messagepipeline.NewGooglePubsubConsumer(&consumerCfg, psClient, logger)
		require.NoError(t, err)

		svc, err := pushservice.New(
			&config.Config{ListenAddr: ":0", NumPipelineWorkers: 2},
			consumer,
			provider,
			store,
			func(h http.Handler) http.Handler { return h }, // No-op Auth
			logger,
		)
		require.NoError(t, err)

		svcCtx, svcCancel := context.WithCancel(ctx)
		defer svcCancel()
		go func() { _ = svc.Start(svcCtx) }()
		t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

		// Step A: Register two installations.
		owner, _ := urn.Parse("urn:push:user:integ-user")
		require.NoError(t, store.Register(ctx, owner, "token-live"))
		require.NoError(t, store.Register(ctx, owner, "token-gone"))

		// Step B: Publish a notification for the user (no tokens in the
		// message; the service looks them up).
		req := &push.Request{
			RecipientID:  owner,
			Notification: push.Notification{Alert: "Hello", MessageFrom: "integ"},
		}
		payload, err := json.Marshal(req)
		require.NoError(t, err)
		_, err = psClient.Publisher(topicID).Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
		require.NoError(t, err)

		// Assert: the gateway was called with both registered tokens.
		require.Eventually(t, func() bool {
			return sender.Calls() == 1
		}, 10*time.Second, 100*time.Millisecond)
		assert.ElementsMatch(t, []string{"token-live", "token-gone"}, sender.LastTokens())

		// Assert: the gone token was purged from the store.
		require.Eventually(t, func() bool {
			tokens, err := store.Tokens(ctx, owner)
			if err != nil {
				return false
			}
			return len(tokens) == 1 && tokens[0] == "token-live"
		}, 10*time.Second, 100*time.Millisecond)
	})
}

func createPubsubResources(t *testing.T, ctx context.Context, client *pubsub.Client, projectID, topicID, subID string) {
	t.Helper()
	topicName := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	_, err := client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topicName})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.TopicAdminClient.DeleteTopic(context.Background(), &pubsubpb.DeleteTopicRequest{Topic: topicName})
	})

	subName := fmt.Sprintf("projects/%s/subscriptions/%s", projectID, subID)
	sub := &pubsubpb.Subscription{
		Name:               subName,
		Topic:              topicName,
		AckDeadlineSeconds: 10,
		RetryPolicy: &pubsubpb.RetryPolicy{
			MinimumBackoff: &durationpb.Duration{Seconds: 1},
		},
	}
	_, err = client.SubscriptionAdminClient.CreateSubscription(ctx, sub)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.SubscriptionAdminClient.DeleteSubscription(context.Background(), &pubsubpb.DeleteSubscriptionRequest{Subscription: subName})
	})
}
