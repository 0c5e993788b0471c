package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/api/middleware"
	"github.com/drfirst/go-healthassist/internal/infrastructure/redpanda"
	"github.com/drfirst/go-healthassist/internal/lookup"
	"github.com/drfirst/go-healthassist/internal/medication"
	"github.com/drfirst/go-healthassist/internal/observability/metrics"
)

// ExcerptLength bounds the interactions text shown next to a check result.
const ExcerptLength = 700

// LabelFetcher returns official label evidence for a drug.
type LabelFetcher interface {
	Label(ctx context.Context, drug string) lookup.Result[lookup.LabelEvidence]
}

// EventPublisher announces checked medication lists.
type EventPublisher interface {
	PublishMedicationsChecked(ctx context.Context, evt redpanda.MedicationsChecked)
}

// MedicationHandler handles medication endpoints
type MedicationHandler struct {
	normalizer *medication.Normalizer
	checker    *medication.Checker
	labels     LabelFetcher
	publisher  EventPublisher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewMedicationHandler creates a new handler. labels, publisher and m may be nil.
func NewMedicationHandler(n *medication.Normalizer, c *medication.Checker, labels LabelFetcher,
	publisher EventPublisher, m *metrics.Metrics, logger *zap.Logger) *MedicationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedicationHandler{
		normalizer: n,
		checker:    c,
		labels:     labels,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Routes returns the handler routes
func (h *MedicationHandler) Routes(r chi.Router) {
	r.Post("/medications/check", h.Check)
	r.Get("/labels/{drug}", h.Label)
}

// MedicationList accepts either a comma-separated string or a JSON array.
type MedicationList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *MedicationList) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*l = medication.SplitList(raw)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.New("medications must be a string or an array of strings")
	}
	var out []string
	for _, it := range items {
		out = append(out, medication.SplitList(it)...)
	}
	*l = out
	return nil
}

// CheckRequest is the request body for an interaction check
type CheckRequest struct {
	Medications   MedicationList `json:"medications" validate:"required,min=1"`
	IncludeLabels bool           `json:"include_labels"`
}

// LabelSummary is label evidence shown alongside a check.
type LabelSummary struct {
	Drug                string `json:"drug"`
	Found               bool   `json:"found"`
	Brand               string `json:"brand,omitempty"`
	InteractionsExcerpt string `json:"interactions_excerpt,omitempty"`
	Warnings            string `json:"warnings,omitempty"`
	Contraindications   string `json:"contraindications,omitempty"`
}

// CheckResponse is the response for an interaction check
type CheckResponse struct {
	Medications  []medication.Medication `json:"medications"`
	Interactions []medication.Hit        `json:"interactions"`
	Labels       []LabelSummary          `json:"labels,omitempty"`
	Disclaimer   string                  `json:"disclaimer"`
}

// Check handles POST /medications/check
func (h *MedicationHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("medication-handler").Start(r.Context(), "check_medications")
	defer span.End()

	var req CheckRequest
	if status, err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	if err := validate.Struct(req); err != nil {
		jsonError(w, msgEmptyMedications, http.StatusBadRequest)
		return
	}

	meds := h.normalizer.Normalize(ctx, strings.Join(req.Medications, ","))
	if len(meds) == 0 {
		jsonError(w, msgEmptyMedications, http.StatusBadRequest)
		return
	}

	hits := h.checker.CheckMedications(meds)
	span.SetAttributes(
		attribute.Int("medications.count", len(meds)),
		attribute.Int("interactions.count", len(hits)),
	)
	if h.metrics != nil {
		for _, hit := range hits {
			h.metrics.InteractionHits.WithLabelValues(string(hit.Severity)).Inc()
		}
	}

	resp := CheckResponse{
		Medications:  meds,
		Interactions: hits,
		Disclaimer:   Disclaimer,
	}
	if req.IncludeLabels && h.labels != nil {
		resp.Labels = h.summarize(ctx, meds)
	}

	canonical := make([]string, 0, len(meds))
	for _, m := range meds {
		canonical = append(canonical, m.Canonical)
	}
	if h.publisher != nil {
		h.publisher.PublishMedicationsChecked(ctx, redpanda.NewMedicationsChecked(canonical, len(hits), h.now().UTC()))
	}

	h.logger.Info("medications checked",
		zap.Strings("canonical", canonical),
		zap.Int("interactions", len(hits)),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	writeJSON(w, http.StatusOK, resp)
}

func (h *MedicationHandler) summarize(ctx context.Context, meds []medication.Medication) []LabelSummary {
	out := make([]LabelSummary, 0, len(meds))
	for _, m := range meds {
		sum := LabelSummary{Drug: m.Canonical}
		if ev, ok := h.labels.Label(ctx, m.Canonical).Get(); ok {
			sum.Found = true
			sum.Brand = ev.Brand
			if sum.Brand == "" {
				sum.Brand = m.Canonical
			}
			sum.InteractionsExcerpt = lookup.Excerpt(ev.Interactions, ExcerptLength)
			sum.Warnings = ev.Warnings
			sum.Contraindications = ev.Contraindications
		}
		out = append(out, sum)
	}
	return out
}

// Label handles GET /labels/{drug}
func (h *MedicationHandler) Label(w http.ResponseWriter, r *http.Request) {
	drug := strings.TrimSpace(chi.URLParam(r, "drug"))
	if drug == "" {
		jsonError(w, msgEmptyMedications, http.StatusBadRequest)
		return
	}
	if h.labels == nil {
		jsonError(w, "label lookups are disabled", http.StatusNotFound)
		return
	}

	ev, ok := h.labels.Label(r.Context(), drug).Get()
	if !ok {
		jsonError(w, "no FDA label text found for "+drug, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
