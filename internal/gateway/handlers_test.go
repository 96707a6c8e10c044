package gateway

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medledger/ehr-dlt/pkg/config"
	"github.com/medledger/ehr-dlt/pkg/logger"
)

// stubInvoker records invocations and plays back canned responses.
type stubInvoker struct {
	submitFn    string
	submitArgs  []string
	evalFn      string
	evalArgs    []string
	result      []byte
	err         error
	submitCalls int
	evalCalls   int
}

func (s *stubInvoker) Submit(function string, args ...string) ([]byte, error) {
	s.submitCalls++
	s.submitFn = function
	s.submitArgs = args
	return s.result, s.err
}

func (s *stubInvoker) Evaluate(function string, args ...string) ([]byte, error) {
	s.evalCalls++
	s.evalFn = function
	s.evalArgs = args
	return s.result, s.err
}

func newTestService(invoker *stubInvoker) *Service {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Fabric: config.FabricConfig{ChaincodeName: "ehr", ChannelName: "healthchannel"},
		Monitoring: config.MonitoringConfig{
			Enabled:     false,
			MetricsPath: "/metrics",
			HealthPath:  "/health",
		},
		LogLevel: "error",
	}
	return NewService(cfg, invoker, logger.New("error"), nil)
}

func TestHealthEndpoint(t *testing.T) {
	svc := newTestService(&stubInvoker{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSubmitForwardsBody(t *testing.T) {
	invoker := &stubInvoker{result: []byte(`{"patientId":"P-100"}`)}
	svc := newTestService(invoker)

	body := `{"patientId":"P-100","name":"Asha"}`
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(body))
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OnboardPatient", invoker.submitFn)
	require.Len(t, invoker.submitArgs, 1)
	assert.JSONEq(t, body, invoker.submitArgs[0])
	assert.JSONEq(t, `{"patientId":"P-100"}`, rec.Body.String())
}

func TestSubmitRejectsEmptyBody(t *testing.T) {
	invoker := &stubInvoker{}
	svc := newTestService(invoker)

	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(""))
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, invoker.submitCalls)
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	invoker := &stubInvoker{}
	svc := newTestService(invoker)

	req := httptest.NewRequest(http.MethodPost, "/access/grant", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, invoker.submitCalls)
}

func TestEvaluateForwardsPathVariables(t *testing.T) {
	invoker := &stubInvoker{result: []byte(`[]`)}
	svc := newTestService(invoker)

	req := httptest.NewRequest(http.MethodGet, "/patients/P-100/records/R-1", nil)
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GetRecordByID", invoker.evalFn)
	assert.Equal(t, []string{"P-100", "R-1"}, invoker.evalArgs)
}

func TestEmptyResultBecomesOKEnvelope(t *testing.T) {
	invoker := &stubInvoker{result: nil}
	svc := newTestService(invoker)

	req := httptest.NewRequest(http.MethodPost, "/access/revoke", strings.NewReader(`{"patientId":"P-100","doctorId":"DOC-7"}`))
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestContractErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        string
		wantStatus int
	}{
		{"authorization", "authorization: role \"doctor\" is not permitted", http.StatusForbidden},
		{"not found", "not_found: patient P-404 not found", http.StatusNotFound},
		{"already exists", "already_exists: patient P-100 already exists", http.StatusConflict},
		{"duplicate pending", "duplicate_pending_request: a pending request exists", http.StatusConflict},
		{"already handled", "already_handled: request handled", http.StatusConflict},
		{"consent gate", "consent_not_enabled: patient has not opted in", http.StatusForbidden},
		{"invalid status", "invalid_status: invalid status: STALE", http.StatusBadRequest},
		{"malformed", "malformed_input: patientId is required", http.StatusBadRequest},
		{"infrastructure", "rpc error: connection refused", http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			invoker := &stubInvoker{err: fmt.Errorf("%s", tc.err)}
			svc := newTestService(invoker)

			req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(`{"patientId":"P-100"}`))
			rec := httptest.NewRecorder()

			svc.Router().ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestRequestIDHeaderAssigned(t *testing.T) {
	svc := newTestService(&stubInvoker{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDHeaderPreserved(t *testing.T) {
	svc := newTestService(&stubInvoker{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestEmergencyStatusRoute(t *testing.T) {
	invoker := &stubInvoker{result: []byte(`[]`)}
	svc := newTestService(invoker)

	req := httptest.NewRequest(http.MethodGet, "/emergency/requests/status/APPROVED", nil)
	rec := httptest.NewRecorder()

	svc.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GetEmergencyRequestsByStatus", invoker.evalFn)
	assert.Equal(t, []string{"APPROVED"}, invoker.evalArgs)
}
