package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medledger/ehr-dlt/pkg/config"
	"github.com/medledger/ehr-dlt/pkg/logger"
	"github.com/medledger/ehr-dlt/pkg/monitoring"
)

// Service is the HTTP façade over the EHR chaincode. It holds no business
// logic: every route forwards to a contract operation and the contract is
// the sole authority on authorization and state.
type Service struct {
	invoker ContractInvoker
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
	cfg     *config.Config
	server  *http.Server
}

// NewService wires the façade together.
func NewService(cfg *config.Config, invoker ContractInvoker, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	return &Service{
		invoker: invoker,
		logger:  log,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Router builds the route table.
func (s *Service) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.loggingMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}

	r.HandleFunc(s.cfg.Monitoring.HealthPath, s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil && s.cfg.Monitoring.Enabled {
		r.Handle(s.cfg.Monitoring.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	// onboarding
	r.HandleFunc("/hospitals", s.submitBody("OnboardHospital")).Methods(http.MethodPost)
	r.HandleFunc("/doctors", s.submitBody("OnboardDoctor")).Methods(http.MethodPost)
	r.HandleFunc("/patients", s.submitBody("OnboardPatient")).Methods(http.MethodPost)
	r.HandleFunc("/insurance", s.submitBody("OnboardInsurance")).Methods(http.MethodPost)

	// entity reads
	r.HandleFunc("/doctors/{doctorId}", s.evaluateVars("GetDoctor", "doctorId")).Methods(http.MethodGet)
	r.HandleFunc("/patients", s.evaluateVars("GetAllPatients")).Methods(http.MethodGet)
	r.HandleFunc("/patients/me", s.evaluateVars("GetPatientProfile")).Methods(http.MethodGet)
	r.HandleFunc("/patients/me", s.submitBody("UpdatePatientProfile")).Methods(http.MethodPatch)
	r.HandleFunc("/doctors/me/patients", s.evaluateVars("GetPatientsForDoctor")).Methods(http.MethodGet)

	// clinical records
	r.HandleFunc("/records", s.submitBody("AddRecord")).Methods(http.MethodPost)
	r.HandleFunc("/patients/{patientId}/records", s.evaluateVars("GetAllRecordsByPatientID", "patientId")).Methods(http.MethodGet)
	r.HandleFunc("/patients/{patientId}/records/{recordId}", s.evaluateVars("GetRecordByID", "patientId", "recordId")).Methods(http.MethodGet)

	// consent
	r.HandleFunc("/access/grant", s.submitBody("GrantAccess")).Methods(http.MethodPost)
	r.HandleFunc("/access/revoke", s.submitBody("RevokeAccess")).Methods(http.MethodPost)
	r.HandleFunc("/access/requests", s.submitBody("RequestAccess")).Methods(http.MethodPost)
	r.HandleFunc("/access/requests", s.submitBody("UpdateAccessRequest")).Methods(http.MethodPut)
	r.HandleFunc("/patients/{patientId}/access", s.evaluateVars("GetAccessList", "patientId")).Methods(http.MethodGet)
	r.HandleFunc("/patients/{patientId}/access/requests", s.evaluateVars("GetAccessRequests", "patientId")).Methods(http.MethodGet)

	// break-glass
	r.HandleFunc("/emergency/requests", s.submitBody("CreateEmergencyRequest")).Methods(http.MethodPost)
	r.HandleFunc("/emergency/requests", s.submitBody("ProcessEmergencyRequest")).Methods(http.MethodPut)
	r.HandleFunc("/emergency/requests/pending", s.evaluateVars("GetPendingEmergencyRequests")).Methods(http.MethodGet)
	r.HandleFunc("/emergency/requests/status/{status}", s.evaluateVars("GetEmergencyRequestsByStatus", "status")).Methods(http.MethodGet)
	r.HandleFunc("/emergency/access/mine", s.evaluateVars("GetMyEmergencyAccess")).Methods(http.MethodGet)

	// audit
	r.HandleFunc("/ledger", s.evaluateVars("FetchLedger")).Methods(http.MethodGet)
	r.HandleFunc("/ledger/history/{assetId}", s.evaluateVars("QueryHistoryOfAsset", "assetId")).Methods(http.MethodGet)
	r.HandleFunc("/stats/system", s.evaluateVars("GetSystemStats")).Methods(http.MethodGet)
	r.HandleFunc("/stats/hospitals", s.evaluateVars("GetHospitalStats")).Methods(http.MethodGet)

	return r
}

// Start runs the HTTP server until Stop is called.
func (s *Service) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down gracefully.
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
