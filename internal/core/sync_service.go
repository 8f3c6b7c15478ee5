package core

import (
	"context"
	"fmt"
	"time"

	"devicesync.service/internal/authz"
	"devicesync.service/internal/core/model"
	"devicesync.service/internal/ports/messaging"
	"devicesync.service/internal/ports/repository"
	"github.com/rs/zerolog/log"
)

const (
	// AckTimeoutReason is recorded when a device stays silent past the
	// acknowledgment window. Kept distinct from rejection reasons so an
	// operator can tell "device said no" from "device said nothing".
	AckTimeoutReason = "acknowledgment timeout: device did not respond within the wait window"

	transportReasonPrefix = "transport error: "
)

// EmployeeSyncService keeps the roster of enrolled persons on attendance
// terminals consistent with the employees assigned to each device's work
// location. It owns the employee_device_syncs state machine and drives the
// device gateway; everything else it touches is read-only.
type EmployeeSyncService struct {
	syncRepo   repository.SyncRepository
	logRepo    repository.SyncLogRepository
	directory  repository.DirectoryRepository
	gateway    DeviceCommandGateway
	producer   messaging.DispatchProducer
	authorizer authz.Authorizer
}

// NewEmployeeSyncService creates a new instance of our main application
// service, wiring up the stores, the device gateway, the dispatch queue
// producer and the authorizer.
func NewEmployeeSyncService(
	syncRepo repository.SyncRepository,
	logRepo repository.SyncLogRepository,
	directory repository.DirectoryRepository,
	gateway DeviceCommandGateway,
	producer messaging.DispatchProducer,
	authorizer authz.Authorizer,
) *EmployeeSyncService {
	return &EmployeeSyncService{
		syncRepo:   syncRepo,
		logRepo:    logRepo,
		directory:  directory,
		gateway:    gateway,
		producer:   producer,
		authorizer: authorizer,
	}
}

// InitializeForEmployee ensures a Pending sync record exists for the employee
// against every active device at the employee's work location. An employee
// without a work location is a no-op. Rows that already exist, in any status,
// are left untouched. Returns the records actually created by this call.
func (s *EmployeeSyncService) InitializeForEmployee(ctx context.Context, employeeID string) ([]model.EmployeeDeviceSync, error) {
	emp, err := s.directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee %s: %w", employeeID, err)
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}
	if emp.WorkLocationID == nil {
		log.Ctx(ctx).Debug().Str("employee_id", employeeID).Msg("Employee has no work location. Nothing to sync.")
		return nil, nil
	}

	return s.ensureForEmployeeAtLocation(ctx, *emp, *emp.WorkLocationID)
}

// InitializeForDevice ensures a Pending sync record exists for every
// Active-status employee at the device's work location. Inactive devices are
// skipped entirely. Safe to call repeatedly for the same device: the
// composite uniqueness constraint makes re-runs no-ops for existing pairs.
func (s *EmployeeSyncService) InitializeForDevice(ctx context.Context, deviceID string) ([]model.EmployeeDeviceSync, error) {
	dev, err := s.directory.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load device %s: %w", deviceID, err)
	}
	if dev == nil {
		return nil, ErrDeviceNotFound
	}
	if !dev.IsActive {
		log.Ctx(ctx).Debug().Str("device_id", deviceID).Msg("Device is inactive. Nothing to sync.")
		return nil, nil
	}

	employees, err := s.directory.ListActiveEmployeesAtLocation(ctx, dev.WorkLocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees at location %s: %w", dev.WorkLocationID, err)
	}

	var created []model.EmployeeDeviceSync
	for _, emp := range employees {
		rec, err := s.ensurePair(ctx, emp.ID, dev.ID)
		if err != nil {
			return created, err
		}
		if rec != nil {
			created = append(created, *rec)
		}
	}

	return created, nil
}

// Reassign reacts to an assignment change. Only Location-type changes concern
// the sync engine; department, position and any other assignment kinds are
// no-ops. A Location change behaves as InitializeForEmployee evaluated
// against the new location. Records against the old location's devices are
// deliberately left alone.
func (s *EmployeeSyncService) Reassign(ctx context.Context, employeeID, newWorkLocationID string, assignmentType model.AssignmentType) ([]model.EmployeeDeviceSync, error) {
	if assignmentType != model.AssignmentLocation {
		log.Ctx(ctx).Debug().
			Str("employee_id", employeeID).
			Str("assignment_type", string(assignmentType)).
			Msg("Assignment change is not a location change. Ignoring.")
		return nil, nil
	}

	emp, err := s.directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee %s: %w", employeeID, err)
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}

	return s.ensureForEmployeeAtLocation(ctx, *emp, newWorkLocationID)
}

// Dispatch drives one sync record to a terminal outcome by sending an ENROLL
// command through the gateway. Only Pending records are dispatched; a record
// already in Synced or Failed is returned unchanged without a gateway call,
// which makes queue re-deliveries harmless.
func (s *EmployeeSyncService) Dispatch(ctx context.Context, syncID int64) (*model.EmployeeDeviceSync, error) {
	rec, err := s.syncRepo.GetSyncRecordByID(ctx, syncID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync record %d: %w", syncID, err)
	}
	if rec == nil {
		return nil, ErrSyncNotFound
	}
	if rec.Status != model.SyncStatusPending {
		log.Ctx(ctx).Info().
			Int64("sync_id", rec.ID).
			Str("status", string(rec.Status)).
			Msg("Sync record is not pending. Skipping dispatch.")
		return rec, nil
	}

	emp, dev, err := s.loadPair(ctx, rec.EmployeeID, rec.DeviceID)
	if err != nil {
		return nil, err
	}
	if emp == nil || dev == nil {
		// The pair vanished from the directory after the record was created.
		// A gateway call is pointless; record the terminal outcome instead.
		return s.failed(ctx, rec, "employee or device no longer exists in the directory")
	}

	entry, err := s.gateway.Send(ctx, model.CommandEnroll, *emp, *dev)
	if err != nil {
		rec, ferr := s.failed(ctx, rec, transportReasonPrefix+err.Error())
		if ferr != nil {
			return nil, ferr
		}
		return rec, fmt.Errorf("%w: %v", ErrTransportFault, err)
	}

	switch outcome := model.OutcomeOf(entry).(type) {
	case model.Acknowledged:
		now := time.Now().UTC()
		if err := s.syncRepo.MarkSynced(ctx, rec.ID, now); err != nil {
			return nil, fmt.Errorf("failed to mark sync record %d synced: %w", rec.ID, err)
		}
		rec.Status = model.SyncStatusSynced
		rec.LastSyncedAt = &now
		rec.LastError = nil
		log.Ctx(ctx).Info().
			Int64("sync_id", rec.ID).
			Str("message_id", entry.MessageID).
			Msg("Employee enrolled on device")
		return rec, nil
	case model.Rejected:
		return s.failed(ctx, rec, outcome.Reason)
	case model.NoResponse:
		return s.failed(ctx, rec, AckTimeoutReason)
	default:
		return s.failed(ctx, rec, fmt.Sprintf("unknown gateway outcome for message %s", entry.MessageID))
	}
}

// Unsync removes an employee's enrollment from a device on operator request.
// The pair must already have a sync record; a missing record is an error and
// the gateway is never contacted. On an acknowledged removal the record goes
// back to Pending with its sync timestamp and error cleared, marking the pair
// eligible for re-evaluation. Rejections and timeouts land in Failed exactly
// as they do for Dispatch.
func (s *EmployeeSyncService) Unsync(ctx context.Context, principal authz.Principal, employeeID, deviceID string) (*model.EmployeeDeviceSync, error) {
	if err := s.authorizer.Authorize(ctx, principal, authz.ActionUnsync); err != nil {
		return nil, err
	}

	rec, err := s.syncRepo.GetSyncRecord(ctx, employeeID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync record for %s/%s: %w", employeeID, deviceID, err)
	}
	if rec == nil {
		return nil, ErrSyncNotFound
	}

	emp, dev, err := s.loadPair(ctx, employeeID, deviceID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}
	if dev == nil {
		return nil, ErrDeviceNotFound
	}

	entry, err := s.gateway.Send(ctx, model.CommandDelete, *emp, *dev)
	if err != nil {
		return s.failed(ctx, rec, transportReasonPrefix+err.Error())
	}

	switch outcome := model.OutcomeOf(entry).(type) {
	case model.Acknowledged:
		if err := s.syncRepo.ResetPending(ctx, rec.ID); err != nil {
			return nil, fmt.Errorf("failed to reset sync record %d: %w", rec.ID, err)
		}
		rec.Status = model.SyncStatusPending
		rec.LastSyncedAt = nil
		rec.LastError = nil
		log.Ctx(ctx).Info().
			Int64("sync_id", rec.ID).
			Str("operator", principal.Subject).
			Str("message_id", entry.MessageID).
			Msg("Employee removed from device")
		return rec, nil
	case model.Rejected:
		return s.failed(ctx, rec, outcome.Reason)
	case model.NoResponse:
		return s.failed(ctx, rec, AckTimeoutReason)
	default:
		return s.failed(ctx, rec, fmt.Sprintf("unknown gateway outcome for message %s", entry.MessageID))
	}
}

// GetSyncState returns the sync record for a pair together with its recent
// dispatch history, for operator diagnosis.
func (s *EmployeeSyncService) GetSyncState(ctx context.Context, employeeID, deviceID string) (*model.EmployeeDeviceSync, []model.DeviceSyncLog, error) {
	rec, err := s.syncRepo.GetSyncRecord(ctx, employeeID, deviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sync record for %s/%s: %w", employeeID, deviceID, err)
	}
	if rec == nil {
		return nil, nil, ErrSyncNotFound
	}

	logs, err := s.logRepo.ListLogsByPair(ctx, employeeID, deviceID, 20)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sync logs for %s/%s: %w", employeeID, deviceID, err)
	}

	return rec, logs, nil
}

// ensureForEmployeeAtLocation creates missing Pending rows for one employee
// against every active device at a location.
func (s *EmployeeSyncService) ensureForEmployeeAtLocation(ctx context.Context, emp model.Employee, workLocationID string) ([]model.EmployeeDeviceSync, error) {
	devices, err := s.directory.ListActiveDevicesAtLocation(ctx, workLocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices at location %s: %w", workLocationID, err)
	}

	var created []model.EmployeeDeviceSync
	for _, dev := range devices {
		rec, err := s.ensurePair(ctx, emp.ID, dev.ID)
		if err != nil {
			return created, err
		}
		if rec != nil {
			created = append(created, *rec)
		}
	}

	return created, nil
}

// ensurePair creates the Pending row for one pair if absent and requests its
// dispatch. Returns nil when the row already existed.
func (s *EmployeeSyncService) ensurePair(ctx context.Context, employeeID, deviceID string) (*model.EmployeeDeviceSync, error) {
	rec, inserted, err := s.syncRepo.EnsureSyncRecord(ctx, employeeID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure sync record for %s/%s: %w", employeeID, deviceID, err)
	}
	if !inserted {
		return nil, nil
	}

	event := messaging.DispatchEvent{
		SyncID:     rec.ID,
		EmployeeID: employeeID,
		DeviceID:   deviceID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.producer.PublishDispatch(ctx, event); err != nil {
		// The row is committed either way; a missed event leaves it Pending
		// for whatever re-queues pending records.
		log.Ctx(ctx).Warn().Err(err).
			Int64("sync_id", rec.ID).
			Msg("Failed to publish dispatch event")
	}

	return rec, nil
}

func (s *EmployeeSyncService) loadPair(ctx context.Context, employeeID, deviceID string) (*model.Employee, *model.BiometricDevice, error) {
	emp, err := s.directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load employee %s: %w", employeeID, err)
	}
	dev, err := s.directory.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load device %s: %w", deviceID, err)
	}
	return emp, dev, nil
}

// failed records a terminal failure on the sync record and mirrors it on the
// returned copy.
func (s *EmployeeSyncService) failed(ctx context.Context, rec *model.EmployeeDeviceSync, reason string) (*model.EmployeeDeviceSync, error) {
	if err := s.syncRepo.MarkFailed(ctx, rec.ID, reason); err != nil {
		return nil, fmt.Errorf("failed to mark sync record %d failed: %w", rec.ID, err)
	}
	rec.Status = model.SyncStatusFailed
	rec.LastError = &reason
	log.Ctx(ctx).Warn().
		Int64("sync_id", rec.ID).
		Str("employee_id", rec.EmployeeID).
		Str("device_id", rec.DeviceID).
		Str("reason", reason).
		Msg("Sync command did not succeed")
	return rec, nil
}
