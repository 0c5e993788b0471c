package redpanda

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMedicationsCheckedEvent(t *testing.T) {
	names := []string{"ibuprofen", "warfarin"}
	evt := NewMedicationsChecked(names, 1, time.Date(2026, 5, 1, 10, 0, 0, 0, time.FixedZone("X", 3600)))
	names[0] = "changed"

	assert.NotEmpty(t, evt.EventID)
	assert.Equal(t, []string{"ibuprofen", "warfarin"}, evt.Medications)
	assert.Equal(t, "ibuprofen,warfarin", evt.Key())
	assert.Equal(t, time.UTC, evt.OccurredAt.Location())

	data, err := json.Marshal(evt)
	require.NoError(t, err)
	decoded, err := DecodeMedicationsChecked(data)
	require.NoError(t, err)
	assert.Equal(t, evt.EventID, decoded.EventID)
	assert.Equal(t, evt.Medications, decoded.Medications)
}

func TestDecodeRejectsInvalidEvents(t *testing.T) {
	_, err := DecodeMedicationsChecked([]byte(`not json`))
	assert.Error(t, err)
	_, err = DecodeMedicationsChecked([]byte(`{"medications":["aspirin"]}`))
	assert.Error(t, err)
}

func TestTraceContextRoundTripsThroughHeaders(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	record := &kgo.Record{Headers: []kgo.RecordHeader{{Key: "other", Value: []byte("v")}}}
	prop := propagation.TraceContext{}
	prop.Inject(ctx, headerCarrier{record: record})

	assert.NotEmpty(t, headerCarrier{record: record}.Get("traceparent"))
	assert.Contains(t, headerCarrier{record: record}.Keys(), "other")

	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), headerCarrier{record: record}))
	assert.Equal(t, span.SpanContext().TraceID(), extracted.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), extracted.SpanID())
}
