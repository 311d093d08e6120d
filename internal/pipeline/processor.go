package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-device-service/pkg/device"
)

// NewProcessor applies each DeviceEvent through a fresh device.Builder.
//
// Events that can never succeed (validation failures, 4xx from OneSignal) are
// logged and acknowledged. Anything else is returned so the message is
// redelivered.
func NewProcessor(
	client device.APIClient,
	appID string,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[DeviceEvent] {

	return func(ctx context.Context, original messagepipeline.Message, event *DeviceEvent) error {
		procLogger := logger.With(
			"op", string(event.Op),
			"device_id", event.DeviceID,
			"pubsub_msg_id", original.ID,
		)

		builder, err := device.NewBuilder(appID, client)
		if err != nil {
			procLogger.Error("Device builder misconfigured", "err", err)
			return err
		}

		var res device.Result
		switch event.Op {
		case OpCreate:
			res, err = builder.Create(ctx, &event.Record)
		case OpUpdate:
			res, err = builder.Update(ctx, event.DeviceID, &event.Record)
		default:
			procLogger.Warn("Dropping event with unsupported op")
			return nil
		}

		if err != nil {
			var tErr *device.TransportError
			switch {
			case device.IsNotSent(err):
				procLogger.Warn("Dropping invalid device event", "err", err)
				return nil
			case errors.As(err, &tErr) && tErr.Rejected():
				procLogger.Warn("OneSignal rejected device event; dropping", "status", tErr.StatusCode, "errors", tErr.Errors)
				return nil
			default:
				procLogger.Error("Device event failed", "err", err)
				return err // Retryable
			}
		}

		procLogger.Info("Device event applied", "player_id", res["id"])
		return nil
	}
}
