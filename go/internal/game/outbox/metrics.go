package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MetricsCollector receives relay measurements
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
}

type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventProcessed(string, bool, time.Duration) {}

// LogMetricsCollector writes each measurement as a structured log line.
type LogMetricsCollector struct {
	logger zerolog.Logger
}

func NewLogMetricsCollector() *LogMetricsCollector {
	return &LogMetricsCollector{logger: log.With().Str("component", "outbox_metrics").Logger()}
}

func (c *LogMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	ev := c.logger.Debug()
	if !success {
		ev = c.logger.Warn()
	}
	ev.Str("event_type", eventType).
		Bool("success", success).
		Dur("duration", duration).
		Msg("outbox event processed")
}

// MetricPublisher wraps a Publisher with metrics collection
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &MetricPublisher{publisher: publisher, metrics: metrics}
}

func (p *MetricPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	start := time.Now()
	err := p.publisher.Publish(ctx, event)
	p.metrics.RecordEventProcessed(event.EventType, err == nil, time.Since(start))
	return err
}
