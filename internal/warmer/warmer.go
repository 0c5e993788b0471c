// Package warmer prefetches drug label evidence for recently checked
// medications so later API calls are served from the shared lookup cache.
package warmer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/infrastructure/redpanda"
	"github.com/drfirst/go-healthassist/internal/lookup"
	"github.com/drfirst/go-healthassist/internal/observability/metrics"
	"github.com/drfirst/go-healthassist/pkg/workerpool"
)

// Task results reported to metrics.
const (
	ResultWarmed  = "warmed"
	ResultEmpty   = "empty"
	ResultDropped = "dropped"
)

// LabelFetcher loads label evidence through the cached lookup client.
type LabelFetcher interface {
	Label(ctx context.Context, drug string) lookup.Result[lookup.LabelEvidence]
}

// Warmer turns medication.checked events into label prefetch tasks.
type Warmer struct {
	labels  LabelFetcher
	pool    *workerpool.Pool[string]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates a warmer whose tasks run on a pool built from cfg. m may be nil.
func New(labels LabelFetcher, cfg workerpool.Config, m *metrics.Metrics, logger *zap.Logger) (*Warmer, error) {
	if labels == nil {
		return nil, errors.New("label fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Warmer{labels: labels, metrics: m, logger: logger}

	pool, err := workerpool.New(cfg, w.warm, logger)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	w.pool = pool
	return w, nil
}

// Start launches the workers.
func (w *Warmer) Start() { w.pool.Start() }

// Stop drains queued prefetches.
func (w *Warmer) Stop() { w.pool.Stop() }

// Stats reports pool counters.
func (w *Warmer) Stats() workerpool.Stats { return w.pool.Stats() }

// Healthy reports whether the prefetch queue is keeping up.
func (w *Warmer) Healthy() bool { return w.pool.IsHealthy() }

// HandleMessage is a redpanda.MessageHandler. A full queue drops the prefetch;
// the next check of the same drug simply misses the cache.
func (w *Warmer) HandleMessage(ctx context.Context, msg *redpanda.ConsumedMessage) error {
	if w.metrics != nil {
		w.metrics.KafkaMessagesConsumed.Inc()
	}

	evt, err := redpanda.DecodeMedicationsChecked(msg.Value)
	if err != nil {
		return fmt.Errorf("offset %d: %w", msg.Offset, err)
	}

	for _, drug := range evt.Medications {
		task := workerpool.Task[string]{ID: evt.EventID + ":" + drug, Payload: drug}
		if err := w.pool.Submit(task); err != nil {
			w.record(ResultDropped)
			w.logger.Warn("label prefetch dropped",
				zap.String("event_id", evt.EventID),
				zap.String("drug", drug),
				zap.Error(err))
		}
	}

	w.logger.Debug("medications queued for label prefetch",
		zap.String("event_id", evt.EventID),
		zap.Int("count", len(evt.Medications)))
	return nil
}

func (w *Warmer) warm(ctx context.Context, task workerpool.Task[string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.labels.Label(ctx, task.Payload).OK() {
		w.record(ResultWarmed)
		return nil
	}
	// No label is a valid answer; failures were already logged by the client.
	w.record(ResultEmpty)
	return nil
}

func (w *Warmer) record(result string) {
	if w.metrics != nil {
		w.metrics.WarmerTasks.WithLabelValues(result).Inc()
	}
}
