package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/openhrx/fieldgate/internal/routing"
	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
	"github.com/openhrx/fieldgate/modules/fieldperm/services"
)

const (
	fieldDecisionAllow = "allow"
	fieldDecisionDeny  = "deny"

	reasonFieldWriteAllowed = "FIELD_WRITE_ALLOWED"
	reasonFieldWriteDenied  = "FIELD_WRITE_DENIED"
)

type fieldResolveRequest struct {
	Model   string            `json:"model"`
	Field   string            `json:"field"`
	Context map[string]string `json:"context,omitempty"`
}

type fieldResolveResponse struct {
	TraceID    string `json:"trace_id"`
	Model      string `json:"model"`
	Field      string `json:"field"`
	SubjectID  string `json:"subject_id"`
	Decision   string `json:"decision"`
	ReasonCode string `json:"reason_code"`
}

// apiTarget stands in for the domain object on API calls: the model key
// plus caller-supplied attributes for expression rules. The resolve API
// cannot carry object-level overrides; those live in embedding code.
type apiTarget struct {
	model string
	attrs map[string]string
}

func (t apiTarget) ModelKey() string { return t.model }

func (t apiTarget) ExprContext() map[string]string { return t.attrs }

func handleFieldResolveAPI(w http.ResponseWriter, r *http.Request, resolver *services.Resolver, registry *types.Registry) {
	principal, ok := currentPrincipal(r.Context())
	if !ok {
		routing.WriteError(w, r, http.StatusUnauthorized, "subject_missing", "subject missing")
		return
	}

	var req fieldResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	req.Model = strings.ToLower(strings.TrimSpace(req.Model))
	req.Field = strings.TrimSpace(req.Field)
	if req.Model == "" || req.Field == "" {
		routing.WriteError(w, r, http.StatusBadRequest, "invalid_request", "model/field required")
		return
	}
	if _, ok := registry.Lookup(req.Model); !ok {
		routing.WriteError(w, r, http.StatusNotFound, "model_not_found", "model not found")
		return
	}

	allowed, err := resolver.Resolve(r.Context(), apiTarget{model: req.Model, attrs: req.Context}, principal, req.Field)
	if err != nil {
		if types.IsConfigError(err) {
			routing.WriteError(w, r, http.StatusInternalServerError, "field_rule_config_error", "field rule config error")
			return
		}
		routing.WriteError(w, r, http.StatusInternalServerError, "resolution_failed", "resolution failed")
		return
	}

	decision := fieldDecisionDeny
	reason := reasonFieldWriteDenied
	if allowed {
		decision = fieldDecisionAllow
		reason = reasonFieldWriteAllowed
	}
	routing.WriteJSON(w, http.StatusOK, fieldResolveResponse{
		TraceID:    ensureTraceID(r),
		Model:      req.Model,
		Field:      req.Field,
		SubjectID:  principal.SubjectID(),
		Decision:   decision,
		ReasonCode: reason,
	})
}

func ensureTraceID(r *http.Request) string {
	if trace := routing.TraceIDFromRequest(r); trace != "" {
		return trace
	}
	return uuid.NewString()
}
