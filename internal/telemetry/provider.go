// Package telemetry wires the Agent Engine's per-step spans and per-run
// counters onto an in-process OpenTelemetry SDK. No exporter is configured:
// Snapshot pulls the current aggregation directly off a manual reader,
// matching the Update Stream's pull-based "metrics" event rather than
// pushing to a collector, which spec.md keeps out of core scope.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/pocketomega/agentrt/internal/engine"

// Provider bundles the tracer and cached metric instruments one Engine uses
// across every run it drives.
type Provider struct {
	reader *sdkmetric.ManualReader
	tp     *sdktrace.TracerProvider
	tracer oteltrace.Tracer

	iterations otelmetric.Int64Counter
	cost       otelmetric.Float64Counter
	toolCalls  otelmetric.Int64Counter
	stepDur    otelmetric.Float64Histogram
}

// New creates a Provider with fresh, unexported trace and metric SDK
// providers (never the global ones — an Engine's telemetry should not leak
// into or collide with a host process's own instrumentation).
func New() (*Provider, error) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tp := sdktrace.NewTracerProvider()

	meter := mp.Meter(instrumentationName)
	iterations, err := meter.Int64Counter("agent_iterations_total")
	if err != nil {
		return nil, fmt.Errorf("telemetry: create iterations counter: %w", err)
	}
	cost, err := meter.Float64Counter("agent_cost_total")
	if err != nil {
		return nil, fmt.Errorf("telemetry: create cost counter: %w", err)
	}
	toolCalls, err := meter.Int64Counter("agent_tool_calls_total")
	if err != nil {
		return nil, fmt.Errorf("telemetry: create tool call counter: %w", err)
	}
	stepDur, err := meter.Float64Histogram("agent_step_duration_seconds")
	if err != nil {
		return nil, fmt.Errorf("telemetry: create step duration histogram: %w", err)
	}

	return &Provider{
		reader:     reader,
		tp:         tp,
		tracer:     tp.Tracer(instrumentationName),
		iterations: iterations,
		cost:       cost,
		toolCalls:  toolCalls,
		stepDur:    stepDur,
	}, nil
}

// StartStep opens a span covering one PlanStep's dispatch. The returned func
// ends the span and records its duration on the step-duration histogram.
func (p *Provider) StartStep(ctx context.Context, agentID, stepID, actionType string) (context.Context, func(success bool)) {
	ctx, span := p.tracer.Start(ctx, "engine.step", oteltrace.WithAttributes(
		attribute.String("agent_id", agentID),
		attribute.String("step_id", stepID),
		attribute.String("action_type", actionType),
	))
	attrs := otelmetric.WithAttributes(attribute.String("agent_id", agentID), attribute.String("action_type", actionType))
	start := time.Now()
	return ctx, func(success bool) {
		span.SetAttributes(attribute.Bool("success", success))
		p.stepDur.Record(ctx, time.Since(start).Seconds(), attrs)
		span.End()
	}
}

// RecordIteration increments the per-agent iteration counter.
func (p *Provider) RecordIteration(ctx context.Context, agentID string) {
	p.iterations.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("agent_id", agentID)))
}

// RecordCost adds cost to the per-agent running cost counter. Zero and
// negative values (cached results) are skipped rather than recorded as a
// zero-valued data point.
func (p *Provider) RecordCost(ctx context.Context, agentID string, cost float64) {
	if cost <= 0 {
		return
	}
	p.cost.Add(ctx, cost, otelmetric.WithAttributes(attribute.String("agent_id", agentID)))
}

// RecordToolCall increments the per-agent tool call counter.
func (p *Provider) RecordToolCall(ctx context.Context, agentID string) {
	p.toolCalls.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("agent_id", agentID)))
}

// Snapshot collects the current metric aggregation into a flat map, suitable
// as a stream.TypeMetrics event payload.
func (p *Provider) Snapshot(ctx context.Context) (map[string]any, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("telemetry: collect metrics: %w", err)
	}
	out := make(map[string]any, 4)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = summarize(m.Data)
		}
	}
	return out, nil
}

// summarize reduces one metric's aggregated data points to a single number,
// since the Update Stream's "metrics" event wants a flat snapshot rather
// than the SDK's per-attribute-set breakdown.
func summarize(data metricdata.Aggregation) any {
	switch d := data.(type) {
	case metricdata.Sum[int64]:
		var total int64
		for _, dp := range d.DataPoints {
			total += dp.Value
		}
		return total
	case metricdata.Sum[float64]:
		var total float64
		for _, dp := range d.DataPoints {
			total += dp.Value
		}
		return total
	case metricdata.Histogram[float64]:
		var count uint64
		var sum float64
		for _, dp := range d.DataPoints {
			count += dp.Count
			sum += dp.Sum
		}
		return map[string]any{"count": count, "sum": sum}
	default:
		return nil
	}
}

// Shutdown releases the underlying SDK providers. Best-effort: errors are
// returned for the caller to log, never to abort a run.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown tracer provider: %w", err)
	}
	return p.reader.Shutdown(ctx)
}
