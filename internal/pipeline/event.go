// Package pipeline applies device events read from Pub/Sub to OneSignal.
package pipeline

import (
	"github.com/tinywideclouds/go-device-service/pkg/device"
)

// Op selects the builder submission an event performs.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
)

// DeviceEvent asks the service to create a player or update an existing one.
// DeviceID is the OneSignal player id and is only used by updates.
type DeviceEvent struct {
	Op       Op            `json:"op"`
	DeviceID string        `json:"device_id,omitempty"`
	Record   device.Record `json:"record"`
}
