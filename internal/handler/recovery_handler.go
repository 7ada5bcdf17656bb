package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"school-admin-api/internal/model"
	"school-admin-api/internal/service"
	"school-admin-api/pkg/apierror"
)

type RecoveryHandler struct {
	service  *service.RecoveryService
	validate *validator.Validate
}

func NewRecoveryHandler(svc *service.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{
		service:  svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Entities returns the catalog of recoverable entity types.
func (h *RecoveryHandler) Entities(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.service.Entities(), nil)
}

// List returns a page of recoverable records for one entity.
// GET /api/v1/recovery/list?entity=&query=&page=&page_size=
func (h *RecoveryHandler) List(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	search := strings.TrimSpace(r.URL.Query().Get("query"))
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 0)

	data, meta, err := h.service.List(r.Context(), entity, search, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, meta)
}

// Preview partitions a candidate id set without mutating anything.
func (h *RecoveryHandler) Preview(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Preview(r.Context(), payload.Entity, payload.IDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

// Restore flips previously removed records back to live after dual
// confirmation.
func (h *RecoveryHandler) Restore(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Restore(r.Context(), payload, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}
