package core

import (
	"context"

	"devicesync.service/internal/core/model"
)

// DeviceCommandGateway is the contract the sync engine requires from the
// device-communication layer. Send dispatches one person-store command to a
// terminal and blocks for at most the gateway's bounded acknowledgment window.
//
// The returned DeviceSyncLog is already persisted and reflects the final
// observed protocol state: ACKNOWLEDGED, FAILED with the device's response
// payload, or SENT when the window elapsed in silence. A protocol-level
// rejection is data, never an error; a non-nil error means a transport fault
// (bridge unreachable, malformed exchange).
type DeviceCommandGateway interface {
	Send(ctx context.Context, cmd model.Command, employee model.Employee, device model.BiometricDevice) (*model.DeviceSyncLog, error)
}
