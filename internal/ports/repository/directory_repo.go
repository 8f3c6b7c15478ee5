package repository

import (
	"context"
	"database/sql"

	"devicesync.service/internal/core/model"
)

// DirectoryRepository reads the HR and organization domain tables the sync
// engine needs. Everything here is read-only: those tables are owned elsewhere.
type DirectoryRepository interface {
	GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error)
	GetDevice(ctx context.Context, deviceID string) (*model.BiometricDevice, error)
	ListActiveDevicesAtLocation(ctx context.Context, workLocationID string) ([]model.BiometricDevice, error)
	ListActiveEmployeesAtLocation(ctx context.Context, workLocationID string) ([]model.Employee, error)
}

// PgDirectoryRepository is the concrete implementation for a PostgreSQL database.
type PgDirectoryRepository struct {
	DB *sql.DB
}

// NewDirectoryRepository create new instance
func NewDirectoryRepository(db *sql.DB) DirectoryRepository {
	return &PgDirectoryRepository{DB: db}
}

// GetEmployee fetches one employee, or nil if unknown.
func (r *PgDirectoryRepository) GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error) {
	query := `SELECT id, full_name, employment_status, work_location_id
	          FROM employees WHERE id = $1`

	emp := &model.Employee{}
	err := r.DB.QueryRowContext(ctx, query, employeeID).
		Scan(&emp.ID, &emp.FullName, &emp.EmploymentStatus, &emp.WorkLocationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return emp, nil
}

// GetDevice fetches one device, or nil if unknown.
func (r *PgDirectoryRepository) GetDevice(ctx context.Context, deviceID string) (*model.BiometricDevice, error) {
	query := `SELECT id, device_identifier, name, work_location_id, is_active, operational_status
	          FROM biometric_devices WHERE id = $1`

	dev := &model.BiometricDevice{}
	err := r.DB.QueryRowContext(ctx, query, deviceID).
		Scan(&dev.ID, &dev.DeviceIdentifier, &dev.Name, &dev.WorkLocationID, &dev.IsActive, &dev.OperationalStatus)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return dev, nil
}

// ListActiveDevicesAtLocation returns devices eligible for sync at a location.
// Eligibility is the is_active flag alone; online/offline does not matter.
func (r *PgDirectoryRepository) ListActiveDevicesAtLocation(ctx context.Context, workLocationID string) ([]model.BiometricDevice, error) {
	query := `SELECT id, device_identifier, name, work_location_id, is_active, operational_status
	          FROM biometric_devices
	          WHERE work_location_id = $1 AND is_active = TRUE`

	rows, err := r.DB.QueryContext(ctx, query, workLocationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []model.BiometricDevice
	for rows.Next() {
		var d model.BiometricDevice
		if err := rows.Scan(&d.ID, &d.DeviceIdentifier, &d.Name, &d.WorkLocationID, &d.IsActive, &d.OperationalStatus); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	return devices, rows.Err()
}

// ListActiveEmployeesAtLocation returns employees with Active employment
// status assigned to a location.
func (r *PgDirectoryRepository) ListActiveEmployeesAtLocation(ctx context.Context, workLocationID string) ([]model.Employee, error) {
	query := `SELECT id, full_name, employment_status, work_location_id
	          FROM employees
	          WHERE work_location_id = $1 AND employment_status = $2`

	rows, err := r.DB.QueryContext(ctx, query, workLocationID, model.EmploymentActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.FullName, &e.EmploymentStatus, &e.WorkLocationID); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}

	return employees, rows.Err()
}
