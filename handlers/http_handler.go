// Package handlers provides the HTTP handlers of the catalog and render service:
// cascade lookups, the generic listing, document rendering and health.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/interfaces"
	"github.com/giygas/prescription-builder/logging"
)

// Error messages returned to clients
const (
	MsgNoBrands      = "No brands found."
	MsgInvalidBody   = "Invalid request body"
	MsgRenderFailure = "Failed to generate prescription"
)

// HTTPHandler serves the catalog lookups against the current data store
type HTTPHandler struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	renderer      interfaces.Renderer
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator, renderer interfaces.Renderer, healthChecker interfaces.HealthChecker) *HTTPHandler {
	return &HTTPHandler{
		dataStore:     dataStore,
		validator:     validator,
		renderer:      renderer,
		healthChecker: healthChecker,
	}
}

// GetOptions answers POST /get_options with the strengths and types of a generic.
// An empty generic yields empty lists.
func (h *HTTPHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	var req entities.OptionsRequest
	if err := decodeJSON(r, &req); err != nil {
		logging.Warn("Invalid options request", "error", err)
		RespondWithError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	for _, v := range []string{req.Generic, req.Strength} {
		if err := h.validator.ValidateInput(v); err != nil {
			logging.Warn("Unusual user input", "input", v, "error", err)
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp := h.dataStore.GetIndex().Options(req.Generic, req.Strength)
	RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetDetails answers POST /get_details with the brands matching a full query.
func (h *HTTPHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	var q entities.MedicineQuery
	if err := decodeJSON(r, &q); err != nil {
		logging.Warn("Invalid details request", "error", err)
		RespondWithError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	for _, v := range []string{q.Generic, q.Strength, q.Type} {
		if err := h.validator.ValidateInput(v); err != nil {
			logging.Warn("Unusual user input", "input", v, "error", err)
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	options := h.dataStore.GetIndex().Details(q)
	if len(options) == 0 {
		RespondWithError(w, http.StatusNotFound, MsgNoBrands)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, entities.DetailsResponse{Options: options})
}

// ListGenerics answers GET /generics with the sorted display names.
func (h *HTTPHandler) ListGenerics(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, http.StatusOK, h.dataStore.GetIndex().Generics())
}

// GeneratePDF answers POST /generate_pdf. A JSON array body uses its first element.
func (h *HTTPHandler) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExportRequest(r)
	if err != nil {
		logging.Warn("Invalid export request", "error", err)
		RespondWithError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	if err := h.validator.ValidateExportRequest(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.renderer.Render(req)
	if err != nil {
		logging.Error("PDF generation failed", "error", err, "medicines", len(req.Medicines))
		RespondWithError(w, http.StatusInternalServerError, MsgRenderFailure)
		return
	}

	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="Prescription.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		logging.Warn("Failed to write document", "error", err)
	}
}

// HealthResponse keeps a stable JSON field order
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

// HealthCheck answers GET /health
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, code := h.healthChecker.HealthCheck()
	RespondWithJSON(w, r, code, HealthResponse{Status: status, Data: data})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func decodeExportRequest(r *http.Request) (entities.ExportRequest, error) {
	var req entities.ExportRequest

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return req, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return req, errors.New("empty body")
	}

	if raw[0] == '[' {
		var list []entities.ExportRequest
		if err := json.Unmarshal(raw, &list); err != nil {
			return req, err
		}
		if len(list) > 0 {
			req = list[0]
		}
		return req, nil
	}

	err = json.Unmarshal(raw, &req)
	return req, err
}
