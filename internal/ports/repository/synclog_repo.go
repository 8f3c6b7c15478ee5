package repository

import (
	"context"
	"database/sql"

	"devicesync.service/internal/core/model"
)

// SyncLogRepository is the contract for the append-only device command log.
type SyncLogRepository interface {
	InsertLog(ctx context.Context, entry *model.DeviceSyncLog) (int64, error)
	ListLogsByPair(ctx context.Context, employeeID, deviceID string, limit int) ([]model.DeviceSyncLog, error)
}

// DeviceSyncLogRepository is the concrete implementation for a PostgreSQL database.
type DeviceSyncLogRepository struct {
	DB *sql.DB
}

// NewDeviceSyncLogRepository create new instance
func NewDeviceSyncLogRepository(db *sql.DB) SyncLogRepository {
	return &DeviceSyncLogRepository{DB: db}
}

// InsertLog appends one dispatch attempt. Rows are never updated afterward;
// the log is an audit trail, not a work queue.
func (r *DeviceSyncLogRepository) InsertLog(ctx context.Context, entry *model.DeviceSyncLog) (int64, error) {
	var id int64
	query := `INSERT INTO device_sync_logs (message_id, employee_id, device_id, command, status, request_payload, response_payload)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	err := r.DB.QueryRowContext(ctx, query,
		entry.MessageID, entry.EmployeeID, entry.DeviceID,
		entry.Command, entry.Status, entry.RequestPayload, entry.ResponsePayload,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// ListLogsByPair returns the most recent dispatch attempts for one pair,
// newest first. Used by the operator-facing read endpoint.
func (r *DeviceSyncLogRepository) ListLogsByPair(ctx context.Context, employeeID, deviceID string, limit int) ([]model.DeviceSyncLog, error) {
	query := `SELECT id, message_id, employee_id, device_id, command, status, request_payload, response_payload, created_at
	          FROM device_sync_logs
	          WHERE employee_id = $1 AND device_id = $2
	          ORDER BY created_at DESC
	          LIMIT $3`

	rows, err := r.DB.QueryContext(ctx, query, employeeID, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.DeviceSyncLog
	for rows.Next() {
		var e model.DeviceSyncLog
		if err := rows.Scan(
			&e.ID, &e.MessageID, &e.EmployeeID, &e.DeviceID,
			&e.Command, &e.Status, &e.RequestPayload, &e.ResponsePayload, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
