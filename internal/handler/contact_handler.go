package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kataria/backend/internal/intake"
	"github.com/kataria/backend/internal/model"
	"github.com/kataria/backend/internal/service"
	"github.com/kataria/backend/internal/validation"
	"github.com/kataria/backend/internal/writer"
)

const (
	defaultMaxBodyBytes = 64 << 10
	defaultListLimit    = 100
	maxListLimit        = 500
)

// ContactHandlerConfig tunes ContactHandler.
type ContactHandlerConfig struct {
	// TrustedProxyCount is used to find the client address for ipAddress.
	TrustedProxyCount int
	// Development adds upstream error text to 500 responses.
	Development  bool
	MaxBodyBytes int64
}

// ContactHandler handles contact form submission and admin listing.
type ContactHandler struct {
	contactService service.ContactService
	cfg            ContactHandlerConfig
}

// NewContactHandler creates a ContactHandler with the given service.
func NewContactHandler(contactService service.ContactService, cfg ContactHandlerConfig) *ContactHandler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &ContactHandler{contactService: contactService, cfg: cfg}
}

type submitResponse struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	SubmissionID string    `json:"submissionId"`
	Timestamp    time.Time `json:"timestamp"`
}

type errorResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Errors  model.ValidationErrors `json:"errors,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Submit handles POST /api/contact/submit.
// The body is JSON or form-encoded; see package intake for accepted field names.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	raw, err := intake.FromRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Message: "Request body too large"})
		case errors.Is(err, intake.ErrUnsupportedMediaType):
			writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{Message: "Unsupported content type"})
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		}
		return
	}
	raw[validation.FieldIPAddress] = ClientIP(r, h.cfg.TrustedProxyCount)

	sub, err := h.contactService.Submit(r.Context(), raw)
	if err != nil {
		var verrs model.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Message: "Validation failed",
				Errors:  verrs,
			})
			return
		}

		slog.ErrorContext(r.Context(), "contact submission failed",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		resp := errorResponse{Message: "Internal server error. Please try again later."}
		if h.cfg.Development {
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Success:      true,
		Message:      "Contact form submitted successfully",
		SubmissionID: sub.SubmissionID,
		Timestamp:    sub.SubmittedAt,
	})
}

type pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type listResponse struct {
	Success    bool                       `json:"success"`
	Data       []*model.ContactSubmission `json:"data"`
	Pagination pagination                 `json:"pagination"`
}

// List handles GET /api/contact/submissions (admin).
// Supports query params: limit (default 100, max 500), offset.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := model.SubmissionListOptions{Limit: defaultListLimit}

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			opts.Limit = min(n, maxListLimit)
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	subs, err := h.contactService.List(r.Context(), opts)
	if err != nil {
		slog.ErrorContext(r.Context(), "listing contact submissions failed", "error", err)
		resp := errorResponse{Message: "Failed to fetch contact submissions"}
		if h.cfg.Development {
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	// Return [] not null for empty lists
	if subs == nil {
		subs = []*model.ContactSubmission{}
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Data:    subs,
		Pagination: pagination{
			Limit:  opts.Limit,
			Offset: opts.Offset,
			Total:  len(subs),
		},
	})
}

type contactHealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Tiers     []writer.TierInfo `json:"tiers"`
}

// Health handles GET /api/contact/health. It reports 503 when no storage tier
// is configured, since every submission would fail.
func (h *ContactHandler) Health(w http.ResponseWriter, r *http.Request) {
	tiers := h.contactService.Tiers()
	status, code := "degraded", http.StatusServiceUnavailable
	for _, t := range tiers {
		if t.Configured {
			status, code = "OK", http.StatusOK
			break
		}
	}
	writeJSON(w, code, contactHealthResponse{
		Status:    status,
		Service:   "Contact Service",
		Timestamp: time.Now().UTC(),
		Tiers:     tiers,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
