package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wesm/suitedash/internal/records"
	"github.com/wesm/suitedash/internal/salesforce"
)

// maxBodyBytes caps request bodies for the POST endpoints.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error body shape: {"detail": ...}. Detail is a string
// or, for upstream failures, whatever Salesforce returned.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// StatusResponse represents background job status.
type StatusResponse struct {
	Running bool        `json:"scheduler_running"`
	Jobs    []JobStatus `json:"jobs"`
}

// fieldError is one entry of a 422 validation detail list.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeDetail writes an error response.
func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeMissingField writes a 422 for a required body field.
func writeMissingField(w http.ResponseWriter, field string) {
	writeDetail(w, http.StatusUnprocessableEntity, []fieldError{{
		Loc:  []string{"body", field},
		Msg:  "field required",
		Type: "value_error.missing",
	}})
}

// writeUpstreamError translates a Salesforce failure into a response with the
// status it carries.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := salesforce.StatusOf(err)
	s.logger.Error("salesforce request failed",
		"op", op,
		"status", status,
		"error", err,
		"request_id", chiRequestID(r),
	)
	writeDetail(w, status, salesforce.DetailOf(err))
}

func (s *Server) requireSalesforce(w http.ResponseWriter) bool {
	if s.sf == nil {
		writeDetail(w, http.StatusServiceUnavailable, "Salesforce client not configured")
		return false
	}
	return true
}

// readBody reads a size-limited request body.
func readBody(r *http.Request, w http.ResponseWriter) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// decodeBody decodes a size-limited JSON body into v.
func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	body, err := readBody(r, w)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListDomain returns every record of one domain.
func (s *Server) handleListDomain(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if !records.IsDomain(domain) {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	if !s.requireSalesforce(w) {
		return
	}

	recs, total, err := s.sf.ListDomain(r.Context(), domain)
	if err != nil {
		s.writeUpstreamError(w, r, "list "+domain, err)
		return
	}
	if recs == nil {
		recs = []records.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		domain:      recs,
		"totalSize": total,
	})
}

// handleBuilderDetail returns one builder and its divisions.
func (s *Server) handleBuilderDetail(w http.ResponseWriter, r *http.Request) {
	if !s.requireSalesforce(w) {
		return
	}
	id := chi.URLParam(r, "id")
	detail, err := s.sf.BuilderDetail(r.Context(), id)
	if err != nil {
		s.writeUpstreamError(w, r, "builder detail", err)
		return
	}
	if detail.Divisions == nil {
		detail.Divisions = []records.Record{}
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleQuery runs arbitrary SOQL, following every result page, or a
// Tooling API query when tooling is set.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req records.QueryRequest
	if err := decodeBody(r, w, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid JSON body: "+err.Error())
		return
	}
	if req.SOQL == nil {
		writeMissingField(w, "soql")
		return
	}
	if strings.TrimSpace(*req.SOQL) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "soql must not be empty")
		return
	}
	s.runQuery(w, r, *req.SOQL, req.Tooling)
}

// handleTestQuery runs the configured test SOQL.
func (s *Server) handleTestQuery(w http.ResponseWriter, r *http.Request) {
	s.runQuery(w, r, s.cfg.Salesforce.DefaultTestSOQL, false)
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request, soql string, tooling bool) {
	if !s.requireSalesforce(w) {
		return
	}
	if tooling {
		raw, err := s.sf.Tooling(r.Context(), soql)
		if err != nil {
			s.writeUpstreamError(w, r, "tooling query", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
		return
	}

	res, err := s.sf.QueryAll(r.Context(), soql)
	if err != nil {
		s.writeUpstreamError(w, r, "query", err)
		return
	}
	if res.Records == nil {
		res.Records = []records.Record{}
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStatus reports the background job state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Jobs: []JobStatus{}}
	if s.scheduler != nil {
		resp.Running = s.scheduler.IsRunning()
		if jobs := s.scheduler.Status(); jobs != nil {
			resp.Jobs = jobs
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogError records a client-side failure. Only message is required.
func (s *Server) handleLogError(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, w)
	var raw map[string]json.RawMessage
	if err == nil {
		err = json.Unmarshal(body, &raw)
	}
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid JSON body: "+err.Error())
		return
	}
	if msg, ok := raw["message"]; !ok || string(msg) == "null" {
		writeMissingField(w, "message")
		return
	}

	var report records.ErrorReport
	if err := json.Unmarshal(body, &report); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeDetail(w, http.StatusUnprocessableEntity, []fieldError{{
				Loc:  []string{"body", typeErr.Field},
				Msg:  "invalid type, expected " + typeErr.Type.String(),
				Type: "type_error",
			}})
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	reportID := uuid.NewString()
	s.logger.Warn("client error reported",
		"report_id", reportID,
		"message", report.Message,
		"type", report.Type,
		"filename", report.Filename,
		"lineno", report.Lineno,
		"colno", report.Colno,
		"timestamp", report.Timestamp,
		"user_agent", report.UserAgent,
		"stack", report.Stack,
	)
	w.Header().Set("X-Report-ID", reportID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}
