package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"devicesync.service/internal/authz"
	"devicesync.service/internal/core"
	"devicesync.service/internal/core/model"
	"github.com/gorilla/mux"
)

// SyncService is the slice of the employee sync service the HTTP layer uses.
type SyncService interface {
	InitializeForEmployee(ctx context.Context, employeeID string) ([]model.EmployeeDeviceSync, error)
	InitializeForDevice(ctx context.Context, deviceID string) ([]model.EmployeeDeviceSync, error)
	Reassign(ctx context.Context, employeeID, newWorkLocationID string, assignmentType model.AssignmentType) ([]model.EmployeeDeviceSync, error)
	Unsync(ctx context.Context, principal authz.Principal, employeeID, deviceID string) (*model.EmployeeDeviceSync, error)
	GetSyncState(ctx context.Context, employeeID, deviceID string) (*model.EmployeeDeviceSync, []model.DeviceSyncLog, error)
}

type SyncHandler struct {
	Service SyncService
}

// ReassignRequest carries an assignment-change notification. Only Location
// changes create sync work; the other types are accepted and ignored.
type ReassignRequest struct {
	AssignmentType model.AssignmentType `json:"assignmentType"`
	WorkLocationID string               `json:"workLocationId"`
}

type initializedResponse struct {
	Message string                     `json:"message"`
	Created []model.EmployeeDeviceSync `json:"created"`
}

type syncStateResponse struct {
	Record *model.EmployeeDeviceSync `json:"record"`
	Logs   []model.DeviceSyncLog     `json:"logs"`
}

// EmployeeCreated is the trigger adapter for the employee-creation event.
func (h *SyncHandler) EmployeeCreated(w http.ResponseWriter, r *http.Request) {
	employeeID := mux.Vars(r)["employeeId"]
	if employeeID == "" {
		http.Error(w, "employeeId is required", http.StatusBadRequest)
		return
	}

	created, err := h.Service.InitializeForEmployee(r.Context(), employeeID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeInitialized(w, created)
}

// DeviceCreated is the trigger adapter for the device-creation event.
func (h *SyncHandler) DeviceCreated(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	if deviceID == "" {
		http.Error(w, "deviceId is required", http.StatusBadRequest)
		return
	}

	created, err := h.Service.InitializeForDevice(r.Context(), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeInitialized(w, created)
}

// AssignmentChanged is the trigger adapter for employee assignment changes.
func (h *SyncHandler) AssignmentChanged(w http.ResponseWriter, r *http.Request) {
	employeeID := mux.Vars(r)["employeeId"]

	var req ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AssignmentType == "" {
		http.Error(w, "assignmentType is required", http.StatusBadRequest)
		return
	}
	if req.AssignmentType == model.AssignmentLocation && req.WorkLocationID == "" {
		http.Error(w, "workLocationId is required for location assignments", http.StatusBadRequest)
		return
	}

	created, err := h.Service.Reassign(r.Context(), employeeID, req.WorkLocationID, req.AssignmentType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeInitialized(w, created)
}

// Unsync removes an employee's enrollment from one device. Gated by role.
func (h *SyncHandler) Unsync(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	principal := authz.Principal{
		Subject: r.Header.Get("X-Operator-Subject"),
		Role:    r.Header.Get("X-Operator-Role"),
	}

	record, err := h.Service.Unsync(r.Context(), principal, vars["employeeId"], vars["deviceId"])
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// GetSyncState returns one pair's sync record and recent dispatch history.
func (h *SyncHandler) GetSyncState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	record, logs, err := h.Service.GetSyncState(r.Context(), vars["employeeId"], vars["deviceId"])
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(syncStateResponse{Record: record, Logs: logs})
}

func writeInitialized(w http.ResponseWriter, created []model.EmployeeDeviceSync) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(initializedResponse{
		Message: "Sync records ensured; dispatch scheduled for new pairs.",
		Created: created,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		http.Error(w, "Operator role is not allowed to perform this action", http.StatusForbidden)
	case errors.Is(err, core.ErrSyncNotFound),
		errors.Is(err, core.ErrEmployeeNotFound),
		errors.Is(err, core.ErrDeviceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "Service error processing request", http.StatusInternalServerError)
	}
}
