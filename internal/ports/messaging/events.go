package messaging

import "time"

// DispatchEvent is the JSON payload sent via SQS to request that a Pending
// sync record be dispatched to its device.
type DispatchEvent struct {
	SyncID     int64     `json:"syncId"`
	EmployeeID string    `json:"employeeId"`
	DeviceID   string    `json:"deviceId"`
	OccurredAt time.Time `json:"occurredAt"`
}
