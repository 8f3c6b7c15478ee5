package repository

import (
	"context"
	"database/sql"
	"time"

	"devicesync.service/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SyncRepository is the contract for the employee/device sync record store.
type SyncRepository interface {
	EnsureSyncRecord(ctx context.Context, employeeID, deviceID string) (*model.EmployeeDeviceSync, bool, error)
	GetSyncRecord(ctx context.Context, employeeID, deviceID string) (*model.EmployeeDeviceSync, error)
	GetSyncRecordByID(ctx context.Context, id int64) (*model.EmployeeDeviceSync, error)
	MarkSynced(ctx context.Context, id int64, syncedAt time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	ResetPending(ctx context.Context, id int64) error
}

// SyncRecordRepository is the concrete implementation for a PostgreSQL database.
type SyncRecordRepository struct {
	DB *sql.DB
}

// NewSyncRecordRepository create new instance
func NewSyncRecordRepository(db *sql.DB) SyncRepository {
	return &SyncRecordRepository{DB: db}
}

// EnsureSyncRecord inserts a Pending row for the pair if none exists yet.
// The insert races against the UNIQUE (employee_id, device_id) constraint:
// losing the race means another trigger created the row first, which is
// reported as created=false, never as an error. Existing rows are never
// touched regardless of their status.
func (r *SyncRecordRepository) EnsureSyncRecord(ctx context.Context, employeeID, deviceID string) (*model.EmployeeDeviceSync, bool, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("app.employeeId", employeeID),
		attribute.String("app.deviceId", deviceID),
	)

	query := `INSERT INTO employee_device_syncs (employee_id, device_id, status)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (employee_id, device_id) DO NOTHING
	          RETURNING id, created_at, updated_at`

	rec := &model.EmployeeDeviceSync{
		EmployeeID: employeeID,
		DeviceID:   deviceID,
		Status:     model.SyncStatusPending,
	}

	err := r.DB.QueryRowContext(ctx, query, employeeID, deviceID, model.SyncStatusPending).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		// Conflict: the pair already has a row.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return rec, true, nil
}

// GetSyncRecord fetches the row for a pair, or nil if the pair has never
// been a synchronization candidate.
func (r *SyncRecordRepository) GetSyncRecord(ctx context.Context, employeeID, deviceID string) (*model.EmployeeDeviceSync, error) {
	query := `SELECT id, employee_id, device_id, status, last_synced_at, last_error, created_at, updated_at
	          FROM employee_device_syncs
	          WHERE employee_id = $1 AND device_id = $2`

	return r.scanOne(r.DB.QueryRowContext(ctx, query, employeeID, deviceID))
}

// GetSyncRecordByID fetches a row by its surrogate key, or nil if absent.
func (r *SyncRecordRepository) GetSyncRecordByID(ctx context.Context, id int64) (*model.EmployeeDeviceSync, error) {
	query := `SELECT id, employee_id, device_id, status, last_synced_at, last_error, created_at, updated_at
	          FROM employee_device_syncs
	          WHERE id = $1`

	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// MarkSynced records a successful enrollment acknowledgment.
func (r *SyncRecordRepository) MarkSynced(ctx context.Context, id int64, syncedAt time.Time) error {
	query := `UPDATE employee_device_syncs
	          SET status = $1,
	              last_synced_at = $2,
	              last_error = NULL,
	              updated_at = now()
	          WHERE id = $3`

	_, err := r.DB.ExecContext(ctx, query, model.SyncStatusSynced, syncedAt, id)
	return err
}

// MarkFailed records a rejection, timeout or transport fault.
func (r *SyncRecordRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `UPDATE employee_device_syncs
	          SET status = $1,
	              last_error = $2,
	              updated_at = now()
	          WHERE id = $3`

	_, err := r.DB.ExecContext(ctx, query, model.SyncStatusFailed, reason, id)
	return err
}

// ResetPending returns a row to the Pending state after a successful removal,
// clearing the sync timestamp and the last error.
func (r *SyncRecordRepository) ResetPending(ctx context.Context, id int64) error {
	query := `UPDATE employee_device_syncs
	          SET status = $1,
	              last_synced_at = NULL,
	              last_error = NULL,
	              updated_at = now()
	          WHERE id = $2`

	_, err := r.DB.ExecContext(ctx, query, model.SyncStatusPending, id)
	return err
}

func (r *SyncRecordRepository) scanOne(row *sql.Row) (*model.EmployeeDeviceSync, error) {
	rec := &model.EmployeeDeviceSync{}
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.DeviceID, &rec.Status,
		&rec.LastSyncedAt, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
