package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drfirst/go-healthassist/internal/calendar"
	"github.com/drfirst/go-healthassist/internal/infrastructure/redpanda"
	"github.com/drfirst/go-healthassist/internal/lexicon"
	"github.com/drfirst/go-healthassist/internal/lookup"
	"github.com/drfirst/go-healthassist/internal/medication"
	"github.com/drfirst/go-healthassist/internal/observability/metrics"
	"github.com/drfirst/go-healthassist/internal/tables"
	"github.com/drfirst/go-healthassist/internal/triage"
	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
)

type stubLabels map[string]lookup.LabelEvidence

func (s stubLabels) Label(_ context.Context, drug string) lookup.Result[lookup.LabelEvidence] {
	if ev, ok := s[drug]; ok {
		return lookup.Found(ev)
	}
	return lookup.Empty[lookup.LabelEvidence]()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []redpanda.MedicationsChecked
}

func (p *recordingPublisher) PublishMedicationsChecked(_ context.Context, evt redpanda.MedicationsChecked) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fixture struct {
	router    chi.Router
	metrics   *metrics.Metrics
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tbl := tables.Load(context.Background(), nil)
	lx := lexicon.Default()
	m := metrics.New(prometheus.NewRegistry())
	pub := &recordingPublisher{}

	labels := stubLabels{
		"warfarin": {ID: "w1", Brand: "Coumadin", Generic: "warfarin", Interactions: strings.Repeat("x", 900), Warnings: "bleeding"},
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		NewTriageHandler(triage.NewService(lx, nil, nil), lx.Symptoms(), tbl.Links, m, nil).Routes(r)
		NewMedicationHandler(
			medication.NewNormalizer(medication.NewAliasTable(tbl.Aliases), nil, nil),
			medication.NewChecker(tbl.Rules),
			labels, pub, m, nil,
		).Routes(r)
		NewReminderHandler(calendar.NewEmitter(), nil).Routes(r)
	})
	return &fixture{router: r, metrics: m, publisher: pub}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestTriageUrgent(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/triage", `{"text":"Sudden chest pain and a mild headache for 2 days"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TriageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, triage.LevelUrgent, resp.Level)
	assert.Contains(t, resp.Reason, "chest pain")
	assert.Contains(t, resp.Symptoms, "chest pain")
	assert.Contains(t, resp.Links, SymptomLink{Symptom: "chest pain", URL: "https://medlineplus.gov/chestpain.html"})
	assert.Equal(t, Disclaimer, resp.Disclaimer)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TriageVerdicts.WithLabelValues("URGENT")))
}

func TestTriageRejectsBlankText(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{"text":"   "}`, `{}`} {
		rec := f.do(http.MethodPost, "/api/v1/triage", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Please enter a description."}`, rec.Body.String())
	}

	rec := f.do(http.MethodPost, "/api/v1/triage", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSymptomsListsVocabulary(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/symptoms", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Symptoms []SymptomLink `json:"symptoms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Symptoms, len(lexicon.Default().Symptoms()))
	assert.Equal(t, SymptomLink{Symptom: "headache", URL: "https://medlineplus.gov/headache.html"}, resp.Symptoms[0])
}

func TestCheckMedications(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/medications/check", `{"medications":"Advil, warfarin, advil","include_labels":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []medication.Medication{
		{Input: "Advil", Canonical: "ibuprofen"},
		{Input: "warfarin", Canonical: "warfarin"},
	}, resp.Medications)
	require.Len(t, resp.Interactions, 1)
	assert.Equal(t, "ibuprofen", resp.Interactions[0].A)
	assert.Equal(t, "warfarin", resp.Interactions[0].B)
	assert.Equal(t, medication.SeverityMajor, resp.Interactions[0].Severity)

	require.Len(t, resp.Labels, 2)
	assert.False(t, resp.Labels[0].Found)
	assert.True(t, resp.Labels[1].Found)
	assert.Equal(t, "Coumadin", resp.Labels[1].Brand)
	assert.Len(t, resp.Labels[1].InteractionsExcerpt, ExcerptLength+3)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, []string{"ibuprofen", "warfarin"}, f.publisher.events[0].Medications)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InteractionHits.WithLabelValues("major")))
}

func TestCheckAcceptsArrayAndReportsNoHits(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/medications/check", `{"medications":["tylenol","sertraline"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Medications, 2)
	assert.Empty(t, resp.Interactions)
	assert.NotNil(t, resp.Interactions)
	assert.Nil(t, resp.Labels)
}

func TestCheckRejectsEmptyList(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{"medications":" , ,"}`, `{"medications":[]}`, `{}`} {
		rec := f.do(http.MethodPost, "/api/v1/medications/check", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"Please enter at least one medication name."}`, rec.Body.String())
	}
	assert.Empty(t, f.publisher.events)
}

func TestLabel(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/labels/warfarin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ev lookup.LabelEvidence
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, "w1", ev.ID)

	rec = f.do(http.MethodGet, "/api/v1/labels/unknownium", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReminder(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/reminders", `{"medication":"ibuprofen","dose":"400 mg","time":"08:30","days":["Mon","Wed"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="reminder_ibuprofen.ics"`, rec.Header().Get("Content-Disposition"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, body, "SUMMARY:Take ibuprofen (400 mg)\r\n")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;BYDAY=MO,WE;BYHOUR=8;BYMINUTE=30;BYSECOND=0\r\n")
}

func TestReminderValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/reminders", `{"medication":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Enter a medication name."}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/v1/reminders", `{"medication":"ibuprofen","time":"25:99"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/reminders", `{"medication":"ibuprofen","days":["Funday"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/reminders", `{"medication":"ibuprofen","days":["Mon",""]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	mgr := circuitbreaker.NewManager(nil, nil)
	_, err := mgr.GetOrCreate("openfda")
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHealthHandler("assist-api", "test", fakePinger{}, mgr, map[string]string{"symptom_links": "builtin"}).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"assist-api","version":"test"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ready ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Database)
	require.Len(t, ready.Breakers, 1)
	assert.Equal(t, circuitbreaker.StateClosed, ready.Breakers[0].State)

	r = chi.NewRouter()
	NewHealthHandler("assist-api", "test", fakePinger{err: errors.New("down")}, nil, nil).Routes(r)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
