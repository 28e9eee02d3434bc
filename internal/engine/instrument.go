package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eleven-am/goclip/internal/domain"
	"github.com/eleven-am/goclip/internal/metrics"
)

// Instrumented decorates an engine with logging and Prometheus metrics.
type Instrumented struct {
	engine  domain.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func Instrument(engine domain.Engine, m *metrics.Metrics, logger *slog.Logger) *Instrumented {
	return &Instrumented{engine: engine, metrics: m, logger: logger}
}

func (e *Instrumented) Execute(ctx context.Context, args []string) (domain.Result, error) {
	start := time.Now()
	res, err := e.engine.Execute(ctx, args)
	took := time.Since(start)

	outcome := Outcome(res, err)
	e.metrics.ObserveEngine(outcome, took)

	attrs := []any{"outcome", outcome, "duration_ms", took.Milliseconds(), "args", args}
	switch outcome {
	case "success":
		e.logger.Debug("engine run", attrs...)
	case "failure":
		e.logger.Warn("engine run failed", append(attrs, "log", tail(res.Log, 2048))...)
	default:
		e.logger.Error("engine run errored", append(attrs, "error", err)...)
	}

	return res, err
}

func Outcome(res domain.Result, err error) string {
	switch {
	case err == nil && res.Success:
		return "success"
	case err == nil:
		return "failure"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

var _ domain.Engine = (*Instrumented)(nil)
