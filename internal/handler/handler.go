package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"heredity/internal/codec"
	"heredity/internal/domain"
	"heredity/internal/inference"
	"heredity/internal/repository"
	"heredity/internal/service"
)

// maxUploadBytes bounds an uploaded pedigree file
const maxUploadBytes = 1 << 20

// PedigreeHandler handles pedigree and inference API requests
type PedigreeHandler struct {
	svc *service.InferenceService
	log logrus.FieldLogger
}

// NewPedigreeHandler creates a new pedigree handler
func NewPedigreeHandler(svc *service.InferenceService, log logrus.FieldLogger) *PedigreeHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PedigreeHandler{svc: svc, log: log.WithField("component", "http")}
}

// Register mounts the handler's routes on mux
func (h *PedigreeHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/pedigrees", h.ListPedigrees)
	mux.HandleFunc("POST /api/pedigrees", h.ImportPedigree)
	mux.HandleFunc("GET /api/pedigrees/{id}", h.GetPedigree)
	mux.HandleFunc("DELETE /api/pedigrees/{id}", h.DeletePedigree)
	mux.HandleFunc("GET /api/pedigrees/{id}/export", h.ExportPedigree)
	mux.HandleFunc("POST /api/pedigrees/{id}/infer", h.RunInference)
	mux.HandleFunc("GET /api/pedigrees/{id}/posteriors", h.GetPosteriors)
	mux.HandleFunc("GET /api/pedigrees/{id}/reports", h.ListReports)
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ListPedigrees returns summaries of all pedigrees
func (h *PedigreeHandler) ListPedigrees(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPedigrees(r.Context())
	if err != nil {
		h.fail(w, "Failed to list pedigrees", err)
		return
	}
	if list == nil {
		list = []domain.PedigreeSummary{}
	}

	h.writeJSON(w, list, http.StatusOK)
}

// ImportPedigree stores the request body as a new pedigree. The format comes
// from the "format" query parameter or, failing that, the Content-Type.
func (h *PedigreeHandler) ImportPedigree(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatFromContentType(r.Header.Get("Content-Type"))
	}

	p, err := h.svc.ImportPedigree(r.Context(), r.URL.Query().Get("name"), format, data)
	if err != nil {
		h.fail(w, "Failed to import pedigree", err)
		return
	}

	h.writeJSON(w, p, http.StatusCreated)
}

// GetPedigree returns a single pedigree
func (h *PedigreeHandler) GetPedigree(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPedigree(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get pedigree", err)
		return
	}

	h.writeJSON(w, p, http.StatusOK)
}

// DeletePedigree removes a pedigree and its latest run
func (h *PedigreeHandler) DeletePedigree(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePedigree(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "Failed to delete pedigree", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportPedigree writes the pedigree's records in the requested format (csv by default)
func (h *PedigreeHandler) ExportPedigree(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		h.writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.GetPedigree(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get pedigree", err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[c.Format()])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", p.ID, c.Format()))
	if err := c.Export(p.Individuals, w); err != nil {
		// Headers are already sent
		h.log.WithError(err).Warn("Failed to export pedigree")
	}
}

// RunInference computes posteriors for a pedigree and returns the run
func (h *PedigreeHandler) RunInference(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.RunInference(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Inference failed", err)
		return
	}

	h.writeJSON(w, codec.NewReport(run), http.StatusOK)
}

// GetPosteriors returns the latest run, as JSON or with ?format=text as the
// plain text report
func (h *PedigreeHandler) GetPosteriors(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get posteriors", err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		h.writeJSON(w, codec.NewReport(run), http.StatusOK)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := codec.WriteText(w, run.Posteriors); err != nil {
			h.log.WithError(err).Warn("Failed to write text report")
		}
	default:
		h.writeError(w, "Invalid format", "format must be json or text", http.StatusBadRequest)
	}
}

// ListReports lists the archived reports of a pedigree
func (h *PedigreeHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.svc.GetPedigree(r.Context(), id); err != nil {
		h.fail(w, "Failed to get pedigree", err)
		return
	}

	infos, err := h.svc.ListReports(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to list reports", err)
		return
	}

	h.writeJSON(w, infos, http.StatusOK)
}

// Helper methods

var contentTypes = map[string]string{
	"csv":  "text/csv",
	"yaml": "application/x-yaml",
	"json": "application/json",
}

func formatFromContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	switch strings.TrimSpace(strings.ToLower(ct)) {
	case "text/csv":
		return "csv"
	case "application/x-yaml", "application/yaml", "text/yaml":
		return "yaml"
	case "application/json":
		return "json"
	default:
		return ""
	}
}

// statusClientClosedRequest is the nginx convention for a client that went
// away before the response was written
const statusClientClosedRequest = 499

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var graphErr *domain.GraphError
	var normErr *inference.NormalizationError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &graphErr),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, codec.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, inference.ErrTooManyIndividuals),
		errors.As(err, &normErr),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrStaleRun):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *PedigreeHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	switch {
	case status == http.StatusNotFound:
		msg = "Not found"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "Inference timed out"
	case status == statusClientClosedRequest:
		h.log.WithError(err).Debug("Client went away")
	case status >= http.StatusInternalServerError:
		h.log.WithError(err).Error(msg)
	}
	h.writeError(w, msg, err.Error(), status)
}

func (h *PedigreeHandler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Warn("Failed to encode JSON")
	}
}

func (h *PedigreeHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
