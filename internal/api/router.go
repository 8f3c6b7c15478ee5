package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"devicesync.service/internal/api/handler"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(service handler.SyncService) *mux.Router {

	syncHandler := handler.SyncHandler{
		Service: service,
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/sync/employees/{employeeId}", syncHandler.EmployeeCreated).Methods(http.MethodPost)
	api.HandleFunc("/sync/devices/{deviceId}", syncHandler.DeviceCreated).Methods(http.MethodPost)
	api.HandleFunc("/sync/employees/{employeeId}/assignment", syncHandler.AssignmentChanged).Methods(http.MethodPost)
	api.HandleFunc("/sync/employees/{employeeId}/devices/{deviceId}", syncHandler.Unsync).Methods(http.MethodDelete)
	api.HandleFunc("/sync/employees/{employeeId}/devices/{deviceId}", syncHandler.GetSyncState).Methods(http.MethodGet)
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	return r
}
