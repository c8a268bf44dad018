package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/openhrx/fieldgate/internal/routing"
	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
	"github.com/openhrx/fieldgate/modules/fieldperm/services"
)

type fieldCapabilitiesRequest struct {
	Model   string            `json:"model"`
	Fields  []string          `json:"fields,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

type fieldCapabilitiesResponse struct {
	TraceID   string   `json:"trace_id"`
	Model     string   `json:"model"`
	SubjectID string   `json:"subject_id"`
	Writable  []string `json:"writable"`
	ReadOnly  []string `json:"read_only"`
}

// handleFieldCapabilitiesAPI reports the writable/read-only split for a
// model's fields, the way form and serializer layers consume it. Fields
// default to everything the model's rule set addresses.
func handleFieldCapabilitiesAPI(w http.ResponseWriter, r *http.Request, resolver *services.Resolver, registry *types.Registry) {
	principal, ok := currentPrincipal(r.Context())
	if !ok {
		routing.WriteError(w, r, http.StatusUnauthorized, "subject_missing", "subject missing")
		return
	}

	var req fieldCapabilitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	req.Model = strings.ToLower(strings.TrimSpace(req.Model))
	if req.Model == "" {
		routing.WriteError(w, r, http.StatusBadRequest, "invalid_request", "model required")
		return
	}
	rs, ok := registry.Lookup(req.Model)
	if !ok {
		routing.WriteError(w, r, http.StatusNotFound, "model_not_found", "model not found")
		return
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = rs.Fields()
	}

	target := apiTarget{model: req.Model, attrs: req.Context}
	writable, err := resolver.WritableFields(r.Context(), target, principal, fields)
	if err != nil {
		writeResolutionError(w, r, err)
		return
	}
	readOnly, err := resolver.ReadOnlyFields(r.Context(), target, principal, fields)
	if err != nil {
		writeResolutionError(w, r, err)
		return
	}

	routing.WriteJSON(w, http.StatusOK, fieldCapabilitiesResponse{
		TraceID:   ensureTraceID(r),
		Model:     req.Model,
		SubjectID: principal.SubjectID(),
		Writable:  writable,
		ReadOnly:  readOnly,
	})
}

func writeResolutionError(w http.ResponseWriter, r *http.Request, err error) {
	if types.IsConfigError(err) {
		routing.WriteError(w, r, http.StatusInternalServerError, "field_rule_config_error", "field rule config error")
		return
	}
	routing.WriteError(w, r, http.StatusInternalServerError, "resolution_failed", "resolution failed")
}
