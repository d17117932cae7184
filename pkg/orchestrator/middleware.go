// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/praxis/pkg/errors"
)

// StageFunc is one reasoning stage: it consumes working memory through the
// orchestrator and returns the partial update to merge back.
type StageFunc func(ctx context.Context) (map[string]any, error)

// Middleware wraps a stage call with cross-cutting behavior.
type Middleware func(stage string, next StageFunc) StageFunc

// Chain composes middlewares so the first listed is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(stage string, next StageFunc) StageFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](stage, next)
		}
		return next
	}
}

// Timing opens a span around each stage call, records stage latency, and
// stamps the duration into the merged update.
func Timing() Middleware {
	tracer := otel.Tracer("praxis/orchestrator")
	meter := otel.Meter("praxis/orchestrator")
	latency, _ := meter.Float64Histogram("praxis.orchestrator.stage_duration_seconds",
		metric.WithDescription("Per-stage reasoning latency"))

	return func(stage string, next StageFunc) StageFunc {
		return func(ctx context.Context) (map[string]any, error) {
			ctx, span := tracer.Start(ctx, "stage "+stage,
				trace.WithAttributes(attribute.String("stage", stage)))
			defer span.End()

			start := time.Now()
			updates, err := next(ctx)
			elapsed := time.Since(start)

			if latency != nil {
				latency.Record(ctx, elapsed.Seconds(),
					metric.WithAttributes(attribute.String("stage", stage)))
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return updates, err
			}
			if updates == nil {
				updates = map[string]any{}
			}
			updates["_timing_"+stage] = elapsed.String()
			return updates, nil
		}
	}
}

// ErrorCapture normalizes stage errors into typed agent errors carrying the
// stage name, so the state machine propagates result values rather than raw
// faults.
func ErrorCapture() Middleware {
	return func(stage string, next StageFunc) StageFunc {
		return func(ctx context.Context) (updates map[string]any, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					updates = nil
					err = errors.New(errors.CodeInternal, "stage panicked", nil).
						WithContext("stage", stage).
						WithContext("panic", rec)
				}
			}()
			updates, err = next(ctx)
			if err != nil {
				err = errors.AsAgentError(err).WithContext("stage", stage)
			}
			return updates, err
		}
	}
}

// Logging emits one structured record per stage call.
func Logging(logger *slog.Logger) Middleware {
	return func(stage string, next StageFunc) StageFunc {
		return func(ctx context.Context) (map[string]any, error) {
			logger.Debug("orchestrator.stage.start", slog.String("stage", stage))
			updates, err := next(ctx)
			if err != nil {
				logger.Warn("orchestrator.stage.error",
					slog.String("stage", stage), slog.String("error", err.Error()))
				return updates, err
			}
			logger.Debug("orchestrator.stage.done",
				slog.String("stage", stage), slog.Int("updates", len(updates)))
			return updates, nil
		}
	}
}
