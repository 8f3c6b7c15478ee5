package model

import (
	"time"
)

// SyncStatus defines the state of an employee/device synchronization record.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// LogStatus defines the protocol-level outcome recorded for one dispatched command.
type LogStatus string

const (
	// LogStatusSent means the command left the gateway but no acknowledgment
	// arrived within the bounded wait window.
	LogStatusSent LogStatus = "SENT"
	LogStatusAcknowledged LogStatus = "ACKNOWLEDGED"
	LogStatusFailed       LogStatus = "FAILED"
)

// Command is the kind of person-store operation sent to a device.
type Command string

const (
	CommandEnroll Command = "ENROLL"
	CommandDelete Command = "DELETE"
)

// EmploymentStatus mirrors the HR domain's employee state. Only Active
// employees are synchronization candidates.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "ACTIVE"
	EmploymentTerminated EmploymentStatus = "TERMINATED"
	EmploymentOnLeave    EmploymentStatus = "ON_LEAVE"
)

// AssignmentType discriminates employee assignment changes. The sync engine
// only reacts to Location changes.
type AssignmentType string

const (
	AssignmentLocation   AssignmentType = "LOCATION"
	AssignmentDepartment AssignmentType = "DEPARTMENT"
	AssignmentPosition   AssignmentType = "POSITION"
)

// Employee is a read-only projection of the HR domain's employee record,
// carrying only what the sync engine needs.
type Employee struct {
	ID               string           `json:"id"`
	FullName         string           `json:"fullName"`
	EmploymentStatus EmploymentStatus `json:"employmentStatus"`
	WorkLocationID   *string          `json:"workLocationId,omitempty"`
}

// BiometricDevice is a read-only projection of the organization domain's
// attendance terminal record. OperationalStatus (online/offline) is carried
// for display but does not affect sync eligibility; IsActive does.
type BiometricDevice struct {
	ID                string `json:"id"`
	DeviceIdentifier  string `json:"deviceIdentifier"`
	Name              string `json:"name"`
	WorkLocationID    string `json:"workLocationId"`
	IsActive          bool   `json:"isActive"`
	OperationalStatus string `json:"operationalStatus"`
}

// EmployeeDeviceSync tracks the synchronization relationship between one
// employee and one device. At most one row exists per (employee, device) pair;
// the database enforces that with a composite unique constraint.
type EmployeeDeviceSync struct {
	ID           int64      `json:"id"`
	EmployeeID   string     `json:"employeeId"`
	DeviceID     string     `json:"deviceId"`
	Status       SyncStatus `json:"status"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	LastError    *string    `json:"lastError,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// DeviceSyncLog is the append-only audit record of one command dispatch
// attempt. It is written by the device gateway and never mutated afterward.
type DeviceSyncLog struct {
	ID              int64     `json:"id"`
	MessageID       string    `json:"messageId"`
	EmployeeID      string    `json:"employeeId"`
	DeviceID        string    `json:"deviceId"`
	Command         Command   `json:"command"`
	Status          LogStatus `json:"status"`
	RequestPayload  string    `json:"requestPayload"`
	ResponsePayload *string   `json:"responsePayload,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
