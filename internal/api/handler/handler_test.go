package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicesync.service/internal/authz"
	"devicesync.service/internal/core"
	"devicesync.service/internal/core/model"
)

// stubService records the arguments of the last call and answers with canned data.
type stubService struct {
	created   []model.EmployeeDeviceSync
	record    *model.EmployeeDeviceSync
	logs      []model.DeviceSyncLog
	err       error
	lastCall  string
	principal authz.Principal
	reassign  struct {
		locationID     string
		assignmentType model.AssignmentType
	}
}

func (s *stubService) InitializeForEmployee(_ context.Context, employeeID string) ([]model.EmployeeDeviceSync, error) {
	s.lastCall = "employee:" + employeeID
	return s.created, s.err
}

func (s *stubService) InitializeForDevice(_ context.Context, deviceID string) ([]model.EmployeeDeviceSync, error) {
	s.lastCall = "device:" + deviceID
	return s.created, s.err
}

func (s *stubService) Reassign(_ context.Context, employeeID, newWorkLocationID string, assignmentType model.AssignmentType) ([]model.EmployeeDeviceSync, error) {
	s.lastCall = "reassign:" + employeeID
	s.reassign.locationID = newWorkLocationID
	s.reassign.assignmentType = assignmentType
	return s.created, s.err
}

func (s *stubService) Unsync(_ context.Context, principal authz.Principal, employeeID, deviceID string) (*model.EmployeeDeviceSync, error) {
	s.lastCall = "unsync:" + employeeID + "/" + deviceID
	s.principal = principal
	return s.record, s.err
}

func (s *stubService) GetSyncState(_ context.Context, employeeID, deviceID string) (*model.EmployeeDeviceSync, []model.DeviceSyncLog, error) {
	s.lastCall = "get:" + employeeID + "/" + deviceID
	return s.record, s.logs, s.err
}

func newTestRouter(s *stubService) *mux.Router {
	h := SyncHandler{Service: s}
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sync/employees/{employeeId}", h.EmployeeCreated).Methods(http.MethodPost)
	api.HandleFunc("/sync/devices/{deviceId}", h.DeviceCreated).Methods(http.MethodPost)
	api.HandleFunc("/sync/employees/{employeeId}/assignment", h.AssignmentChanged).Methods(http.MethodPost)
	api.HandleFunc("/sync/employees/{employeeId}/devices/{deviceId}", h.Unsync).Methods(http.MethodDelete)
	api.HandleFunc("/sync/employees/{employeeId}/devices/{deviceId}", h.GetSyncState).Methods(http.MethodGet)
	return r
}

func TestEmployeeCreatedTrigger(t *testing.T) {
	s := &stubService{created: []model.EmployeeDeviceSync{{ID: 1, EmployeeID: "emp-1", DeviceID: "dev-1", Status: model.SyncStatusPending}}}
	rec := httptest.NewRecorder()

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/employees/emp-1", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "employee:emp-1", s.lastCall)

	var resp struct {
		Created []model.EmployeeDeviceSync `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Created, 1)
}

func TestDeviceCreatedTrigger(t *testing.T) {
	s := &stubService{}
	rec := httptest.NewRecorder()

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/devices/dev-9", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "device:dev-9", s.lastCall)
}

func TestAssignmentChanged_LocationType(t *testing.T) {
	s := &stubService{}
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"assignmentType":"LOCATION","workLocationId":"loc-2"}`)

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/employees/emp-1/assignment", body))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "reassign:emp-1", s.lastCall)
	assert.Equal(t, model.AssignmentLocation, s.reassign.assignmentType)
	assert.Equal(t, "loc-2", s.reassign.locationID)
}

func TestAssignmentChanged_OtherTypesStillReachService(t *testing.T) {
	// Non-location types are the service's no-op to make, not the handler's.
	s := &stubService{}
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"assignmentType":"DEPARTMENT"}`)

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/employees/emp-1/assignment", body))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, model.AssignmentDepartment, s.reassign.assignmentType)
}

func TestAssignmentChanged_MissingType(t *testing.T) {
	s := &stubService{}
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{}`)

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/employees/emp-1/assignment", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.lastCall)
}

func TestUnsync_PassesPrincipalFromHeaders(t *testing.T) {
	s := &stubService{record: &model.EmployeeDeviceSync{ID: 3, Status: model.SyncStatusPending}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sync/employees/emp-1/devices/dev-1", nil)
	req.Header.Set("X-Operator-Subject", "ops@example.com")
	req.Header.Set("X-Operator-Role", "admin")

	newTestRouter(s).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unsync:emp-1/dev-1", s.lastCall)
	assert.Equal(t, "ops@example.com", s.principal.Subject)
	assert.Equal(t, "admin", s.principal.Role)
}

func TestUnsync_ForbiddenMapsTo403(t *testing.T) {
	s := &stubService{err: authz.ErrForbidden}
	rec := httptest.NewRecorder()

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/sync/employees/emp-1/devices/dev-1", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnsync_NotFoundMapsTo404(t *testing.T) {
	s := &stubService{err: core.ErrSyncNotFound}
	rec := httptest.NewRecorder()

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/sync/employees/emp-1/devices/dev-1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSyncState(t *testing.T) {
	s := &stubService{
		record: &model.EmployeeDeviceSync{ID: 5, EmployeeID: "emp-1", DeviceID: "dev-1", Status: model.SyncStatusFailed},
		logs:   []model.DeviceSyncLog{{MessageID: "m-1"}},
	}
	rec := httptest.NewRecorder()

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/employees/emp-1/devices/dev-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Record model.EmployeeDeviceSync `json:"record"`
		Logs   []model.DeviceSyncLog    `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.SyncStatusFailed, resp.Record.Status)
	assert.Len(t, resp.Logs, 1)
}

func TestServiceErrorMapsTo500(t *testing.T) {
	s := &stubService{err: assert.AnError}
	rec := httptest.NewRecorder()

	newTestRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/employees/emp-1", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
