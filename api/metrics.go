package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "flowboard-api"

// requestMetrics accumulates per-request timings and counters for one
// handler invocation and emits them as a single structured log line plus an
// otel span when the request finishes.
type requestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	route         string
	start         time.Time
	storeDuration time.Duration
	rowsReturned  int
	cascadeCount  int
	errorStage    string
}

// newRequestMetrics opens a span for the route and returns the metrics
// recorder together with the span-carrying context the handler should use
// for downstream calls.
func newRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, route)
	m := &requestMetrics{
		logger: logger,
		span:   span,
		route:  route,
		start:  time.Now(),
	}
	return m, spanCtx
}

func (m *requestMetrics) ObserveStore(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.storeDuration = duration
}

func (m *requestMetrics) SetRowsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.rowsReturned = count
}

func (m *requestMetrics) SetCascadeCount(count int) {
	if count < 0 {
		count = 0
	}
	m.cascadeCount = count
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finishes the span and writes the metrics line. Call it exactly once,
// deferred at the top of the handler.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("route", m.route),
			attribute.Int("http.status_code", status),
			attribute.Int("rows_returned", m.rowsReturned),
		)
		if m.cascadeCount > 0 {
			m.span.SetAttributes(attribute.Int("cascade_count", m.cascadeCount))
		}
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":    m.route,
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.storeDuration > 0 {
		fields["store_ms"] = durationToMillis(m.storeDuration)
	}
	if m.rowsReturned > 0 {
		fields["rows_returned"] = m.rowsReturned
	}
	if m.cascadeCount > 0 {
		fields["cascade_count"] = m.cascadeCount
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
