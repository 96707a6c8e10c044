package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// errorResponse is the JSON body returned for failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

// submitBody returns a handler that forwards the request body as the single
// JSON argument of an ordered transaction.
func (s *Service) submitBody(function string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "unable to read request body")
			return
		}
		if len(body) == 0 {
			s.writeError(w, http.StatusBadRequest, "request body is required")
			return
		}
		if !json.Valid(body) {
			s.writeError(w, http.StatusBadRequest, "request body must be valid JSON")
			return
		}

		start := time.Now()
		result, err := s.invoker.Submit(function, string(body))
		s.recordInvocation(function, err, time.Since(start))
		if err != nil {
			s.writeContractError(w, err)
			return
		}
		s.writeResult(w, http.StatusOK, result)
	}
}

// evaluateVars returns a handler that forwards the named path variables as
// positional arguments of a query.
func (s *Service) evaluateVars(function string, varNames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		args := make([]string, 0, len(varNames))
		for _, name := range varNames {
			args = append(args, vars[name])
		}

		start := time.Now()
		result, err := s.invoker.Evaluate(function, args...)
		s.recordInvocation(function, err, time.Since(start))
		if err != nil {
			s.writeContractError(w, err)
			return
		}
		s.writeResult(w, http.StatusOK, result)
	}
}

func (s *Service) recordInvocation(function string, err error, duration time.Duration) {
	s.logger.ChaincodeInvocation(s.cfg.Fabric.ChaincodeName, function, duration.Milliseconds(), err)

	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordChaincodeInvocation(s.cfg.Fabric.ChaincodeName, function, status, duration)
}

// writeContractError maps the contract's error taxonomy onto HTTP statuses.
// The contract renders errors as "<kind>: <message>", which survives the
// gateway round trip inside the peer's error string.
func (s *Service) writeContractError(w http.ResponseWriter, err error) {
	s.writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "authorization:"):
		return http.StatusForbidden
	case strings.Contains(msg, "not_found:"):
		return http.StatusNotFound
	case strings.Contains(msg, "already_exists:"),
		strings.Contains(msg, "duplicate_pending_request:"),
		strings.Contains(msg, "already_handled:"):
		return http.StatusConflict
	case strings.Contains(msg, "consent_not_enabled:"):
		return http.StatusForbidden
	case strings.Contains(msg, "invalid_status:"),
		strings.Contains(msg, "malformed_input:"):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (s *Service) writeResult(w http.ResponseWriter, status int, result []byte) {
	if len(result) == 0 {
		s.writeJSON(w, status, map[string]string{"status": "ok"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(result)
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
