package redpanda

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/propagation"
)

// MedicationsChecked records that a medication list was checked. Consumers use
// the canonical names to prefetch label evidence.
type MedicationsChecked struct {
	EventID      string    `json:"event_id"`
	OccurredAt   time.Time `json:"occurred_at"`
	Medications  []string  `json:"medications"`
	Interactions int       `json:"interactions"`
}

// NewMedicationsChecked creates an event for the canonical names of one check.
func NewMedicationsChecked(canonical []string, interactions int, now time.Time) MedicationsChecked {
	return MedicationsChecked{
		EventID:      uuid.NewString(),
		OccurredAt:   now.UTC(),
		Medications:  append([]string(nil), canonical...),
		Interactions: interactions,
	}
}

// Key partitions events for the same medication set together.
func (e MedicationsChecked) Key() string {
	return strings.Join(e.Medications, ",")
}

// DecodeMedicationsChecked parses an event payload.
func DecodeMedicationsChecked(data []byte) (MedicationsChecked, error) {
	var e MedicationsChecked
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("decode %s event: %w", TopicMedicationChecked, err)
	}
	if e.EventID == "" {
		return e, fmt.Errorf("decode %s event: missing event_id", TopicMedicationChecked)
	}
	return e, nil
}

// headerCarrier adapts record headers to an OpenTelemetry text map carrier.
type headerCarrier struct {
	record *kgo.Record
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.record.Headers {
		if h.Key == key {
			c.record.Headers[i].Value = []byte(value)
			return
		}
	}
	c.record.Headers = append(c.record.Headers, kgo.RecordHeader{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.record.Headers))
	for _, h := range c.record.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
