package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/api/middleware"
	"github.com/drfirst/go-healthassist/internal/observability/metrics"
	"github.com/drfirst/go-healthassist/internal/triage"
)

// Triager classifies a symptom description.
type Triager interface {
	Triage(ctx context.Context, text string) triage.Result
}

// TriageHandler handles symptom triage endpoints
type TriageHandler struct {
	triager    Triager
	vocabulary []string
	links      map[string]string
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewTriageHandler creates a new handler. links maps lower-cased symptoms to
// reference URLs; m may be nil.
func NewTriageHandler(t Triager, vocabulary []string, links map[string]string, m *metrics.Metrics, logger *zap.Logger) *TriageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageHandler{
		triager:    t,
		vocabulary: vocabulary,
		links:      links,
		metrics:    m,
		logger:     logger,
	}
}

// Routes returns the handler routes
func (h *TriageHandler) Routes(r chi.Router) {
	r.Post("/triage", h.Triage)
	r.Get("/symptoms", h.Symptoms)
}

// TriageRequest is the request body for a triage
type TriageRequest struct {
	Text string `json:"text" validate:"required"`
}

// SymptomLink is a reference page for a symptom.
type SymptomLink struct {
	Symptom string `json:"symptom"`
	URL     string `json:"url,omitempty"`
}

// TriageResponse is the verdict plus reference links for detected symptoms.
type TriageResponse struct {
	triage.Result
	Links      []SymptomLink `json:"links"`
	Disclaimer string        `json:"disclaimer"`
}

// Triage handles POST /triage
func (h *TriageHandler) Triage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("triage-handler").Start(r.Context(), "triage")
	defer span.End()

	var req TriageRequest
	if status, err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(req); err != nil {
		jsonError(w, msgEmptyDescription, http.StatusBadRequest)
		return
	}

	res := h.triager.Triage(ctx, req.Text)
	span.SetAttributes(
		attribute.String("triage.level", string(res.Level)),
		attribute.Int("triage.symptoms", len(res.Symptoms)),
	)
	if h.metrics != nil {
		h.metrics.TriageVerdicts.WithLabelValues(string(res.Level)).Inc()
	}

	h.logger.Info("triage completed",
		zap.String("level", string(res.Level)),
		zap.Int("symptoms", len(res.Symptoms)),
		zap.Int("red_hits", len(res.Context.RedHits)),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	links := make([]SymptomLink, 0, len(res.Symptoms))
	for _, s := range res.Symptoms {
		if url, ok := h.links[strings.ToLower(s)]; ok {
			links = append(links, SymptomLink{Symptom: s, URL: url})
		}
	}

	writeJSON(w, http.StatusOK, TriageResponse{Result: res, Links: links, Disclaimer: Disclaimer})
}

// Symptoms handles GET /symptoms
func (h *TriageHandler) Symptoms(w http.ResponseWriter, _ *http.Request) {
	out := make([]SymptomLink, 0, len(h.vocabulary))
	for _, s := range h.vocabulary {
		out = append(out, SymptomLink{Symptom: s, URL: h.links[strings.ToLower(s)]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"symptoms": out})
}
