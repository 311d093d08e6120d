package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
)

// DeviceEventTransformer unmarshals a raw message into a DeviceEvent.
//
// Malformed payloads and unknown ops are returned with skip=true so the
// StreamingService can Nack them towards the dead letter topic.
func DeviceEventTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*DeviceEvent, bool, error) {
	var event DeviceEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal device event from message %s: %w", msg.ID, err)
	}

	switch event.Op {
	case OpCreate, OpUpdate:
	default:
		return nil, true, fmt.Errorf("message %s has unsupported op %q", msg.ID, event.Op)
	}

	return &event, false, nil
}
