// Package pipeline contains the core message processing components for the
// service.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tispr/loopback-component-push/pkg/push"
)

// PushRequestTransformer is a dataflow Transformer that safely unmarshals
// a raw message payload into a structured push.Request.
//
// Malformed payloads return an error with skip=true so the StreamingService
// can handle the Nack/DLQ logic instead of looping on a poison pill.
func PushRequestTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*push.Request, bool, error) {
	var req push.Request

	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal push request from message %s: %w", msg.ID, err)
	}

	if req.RecipientID.String() == "" {
		return nil, true, fmt.Errorf("push request %s has no recipient", msg.ID)
	}

	return &req, false, nil
}
