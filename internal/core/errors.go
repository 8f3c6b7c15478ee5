package core

import "errors"

var (
	// ErrSyncNotFound is returned when an operation requires an existing sync
	// record for a pair and none was ever created.
	ErrSyncNotFound = errors.New("no sync record exists for this employee and device")

	// ErrEmployeeNotFound is returned when the HR domain does not know the employee.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrDeviceNotFound is returned when the organization domain does not know the device.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrTransportFault marks a gateway-level fault (bridge unreachable,
	// malformed exchange). The sync record is already marked Failed when this
	// is returned; the sentinel exists so callers doing failure accounting,
	// like the dispatch worker's circuit breaker, can tell a bridge outage
	// from a device outcome.
	ErrTransportFault = errors.New("device gateway transport fault")
)
