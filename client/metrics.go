package client

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskboard/client"

type opMetrics struct {
	logger          *log.Logger
	span            trace.Span
	op              string
	route           string
	requestID       string
	start           time.Time
	requestDuration time.Duration
	decodeDuration  time.Duration
	errorStage      string
}

func newOpMetrics(ctx context.Context, logger *log.Logger, op, route string) (*opMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, op)
	span.SetAttributes(attribute.String("http.route", route))
	return &opMetrics{
		logger: logger,
		span:   span,
		op:     op,
		route:  route,
		start:  time.Now(),
	}, spanCtx
}

func (m *opMetrics) SetRequestID(id string) {
	m.requestID = id
}

func (m *opMetrics) ObserveRequest(d time.Duration) {
	if d > 0 {
		m.requestDuration = d
	}
}

func (m *opMetrics) ObserveDecode(d time.Duration) {
	if d > 0 {
		m.decodeDuration = d
	}
}

func (m *opMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log emits one structured entry per operation and closes the span.
func (m *opMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	defer m.span.End()

	fields := log.Fields{
		"op":       m.op,
		"route":    m.route,
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.requestID != "" {
		fields["request_id"] = m.requestID
	}
	if m.requestDuration > 0 {
		fields["request_ms"] = durationToMillis(m.requestDuration)
	}
	if m.decodeDuration > 0 {
		fields["decode_ms"] = durationToMillis(m.decodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}

	if status > 0 {
		m.span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if m.errorStage != "" {
		m.span.SetAttributes(attribute.String("taskboard.error_stage", m.errorStage))
	}

	if err != nil {
		fields["error"] = err.Error()
		m.span.SetStatus(codes.Error, err.Error())
		if m.logger != nil {
			m.logger.WithFields(fields).Warn("sync.request")
		}
		return
	}
	m.span.SetStatus(codes.Ok, "")
	if m.logger != nil {
		m.logger.WithFields(fields).Debug("sync.request")
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
