package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tispr/loopback-component-push/pkg/push"
)

// NewProcessor creates the logic that handles one push request end to end:
// look up the recipient's installations, dispatch through the provider,
// and act on the receipt.
//
// Gone tokens are purged from the store (self-healing). Recoverable
// per-token failures are logged as one composite error and the message is
// acked: nacking would redeliver the whole batch and duplicate delivery to
// the tokens that already succeeded. Only transport and protocol failures
// propagate for pipeline retry.
func NewProcessor(
	provider push.Provider,
	store push.InstallationStore,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[push.Request] {

	return func(ctx context.Context, original messagepipeline.Message, request *push.Request) error {
		procLogger := logger.With(
			"recipient_id", request.RecipientID.String(),
			"pubsub_msg_id", original.ID,
		)

		tokens, err := store.Tokens(ctx, request.RecipientID)
		if err != nil {
			procLogger.Error("Failed to fetch installations", "err", err)
			return err
		}

		if len(tokens) == 0 {
			procLogger.Info("No devices registered for user; dropping notification.")
			return nil
		}

		receipt, err := provider.PushNotification(ctx, &request.Notification, tokens...)
		if err != nil {
			procLogger.Error("GCM dispatch failed", "err", err)
			return err // Retryable
		}

		if len(receipt.GoneTokens) > 0 {
			procLogger.Info("Cleaning up gone tokens", "count", len(receipt.GoneTokens))
			for _, t := range receipt.GoneTokens {
				if err := store.Unregister(ctx, request.RecipientID, t); err != nil {
					procLogger.Warn("Failed to delete installation", "token", t, "err", err)
				}
			}
		}

		if deliveryErr := receipt.Err(); deliveryErr != nil {
			procLogger.Warn("Some tokens failed delivery", "err", deliveryErr)
		}

		procLogger.Info("Dispatched", "success", receipt.SuccessCount, "gone", len(receipt.GoneTokens), "failed", len(receipt.Failures))
		return nil
	}
}
