package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/leadcapture/internal/observability/metrics"
	"github.com/wolfman30/leadcapture/pkg/logging"
)

// DefaultMaxBodyBytes is the request body ceiling for submissions (10 KB).
const DefaultMaxBodyBytes int64 = 10 * 1024

// Response messages shared with the presentation layer.
const (
	msgInvalidInput   = "Invalid input data"
	msgInternal       = "Internal Server Error"
	msgPayloadTooBig  = "Payload Too Large"
	msgTableCleared   = "Table cleared"
	msgMalformedInput = "Invalid request body"
)

var leadsTracer = otel.Tracer("leadcapture.internal.leads")

// Response is the JSON envelope for every lead API reply.
type Response struct {
	Success bool    `json:"success"`
	Data    *Lead   `json:"data,omitempty"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
	Details []Issue `json:"details,omitempty"`
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo         Repository
	logger       *logging.Logger
	metrics      *metrics.LeadMetrics
	maxBodyBytes int64
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithMetrics records submission and reset outcomes.
func WithMetrics(m *metrics.LeadMetrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithMaxBodyBytes overrides the submission body ceiling.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if repo == nil {
		panic(ErrNilRepository)
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		repo:         repo,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the lead-capture operations.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/leads", h.SubmitLead)
	r.Post("/reset", h.ResetLeads)
	return r
}

// SubmitLead handles POST /api/leads requests
func (h *Handler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	ctx, span := leadsTracer.Start(r.Context(), "leads.submit")
	defer span.End()

	body, err := readBody(w, r, h.maxBodyBytes)
	if err != nil {
		if errors.Is(err, ErrPayloadTooLarge) {
			h.logger.Warn("[LEAD CAPTURE] payload rejected", "limit_bytes", h.maxBodyBytes)
			h.metrics.ObserveSubmission(metrics.OutcomeTooLarge)
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Error: msgPayloadTooBig})
			return
		}
		h.logger.Error("[LEAD CAPTURE] failed to read request body", "error", err)
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, Response{Error: msgMalformedInput})
		return
	}

	candidate, err := Validate(body)
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			span.RecordError(err)
			h.logger.Error("[LEAD CAPTURE] validation failed unexpectedly", "error", err)
			h.metrics.ObserveSubmission(metrics.OutcomeError)
			writeJSON(w, http.StatusInternalServerError, Response{Error: msgInternal})
			return
		}
		span.SetAttributes(attribute.Int("leads.issues", len(verr.Issues)))
		h.logger.Info("[LEAD CAPTURE] rejected", "fields", verr.Fields(), "issues", len(verr.Issues))
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, Response{Error: msgInvalidInput, Details: verr.Issues})
		return
	}

	h.logger.Info("[LEAD CAPTURE] received", "name", candidate.Name, "email", candidate.Email)

	start := time.Now()
	lead, err := h.repo.Insert(ctx, candidate)
	h.metrics.ObserveStoreLatency("insert", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		h.logger.Error("[LEAD CAPTURE] error during insert", "error", err, "email", candidate.Email)
		h.metrics.ObserveSubmission(metrics.OutcomeError)
		writeJSON(w, http.StatusInternalServerError, Response{Error: msgInternal})
		return
	}

	span.SetAttributes(attribute.Int64("leads.id", lead.ID))
	h.logger.Info("[LEAD CAPTURE] written to database", "id", lead.ID, "created_at", lead.CreatedAt)
	h.metrics.ObserveSubmission(metrics.OutcomeCreated)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: lead})
}

// ResetLeads handles POST /api/reset requests. Unlike SubmitLead the failure
// text is returned to the caller.
func (h *Handler) ResetLeads(w http.ResponseWriter, r *http.Request) {
	ctx, span := leadsTracer.Start(r.Context(), "leads.reset")
	defer span.End()

	h.logger.Info("RESET initiated: clearing leads table")

	start := time.Now()
	removed, err := h.repo.Clear(ctx)
	h.metrics.ObserveStoreLatency("clear", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clear failed")
		h.logger.Error("RESET failed", "error", err)
		h.metrics.ObserveReset(metrics.OutcomeError)
		writeJSON(w, http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}

	span.SetAttributes(attribute.Int64("leads.removed", removed))
	h.logger.Info("RESET complete: leads table is empty", "removed", removed)
	h.metrics.ObserveReset(metrics.OutcomeCleared)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: msgTableCleared})
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readBody enforces the ceiling before anything is parsed: a declared
// Content-Length over the limit is refused without reading.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.ContentLength > limit {
		return nil, ErrPayloadTooLarge
	}
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrPayloadTooLarge
		}
		return nil, fmt.Errorf("leads: read body: %w", err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
