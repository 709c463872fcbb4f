// Package instrument decorates an Executor with tracing and logging.
//
// Both decorators are transparent: rows and errors pass through unchanged,
// so they compose with each other and with any store.
package instrument

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// Span attribute keys.
const (
	AttributeStatement = "docrow.statement"
	AttributeTable     = "docrow.table"
	AttributeRows      = "docrow.rows"
)

// TraceOption configures Traced.
type TraceOption func(*traced)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) TraceOption {
	return func(t *traced) { t.provider = tp }
}

type traced struct {
	next     record.Executor
	provider trace.TracerProvider
	tracer   trace.Tracer
}

// Traced wraps next so each statement runs inside a span named after the
// statement kind ("lookup", "insert", "delete", "define").
func Traced(next record.Executor, tracerName string, opts ...TraceOption) record.Executor {
	t := &traced{next: next}
	for _, opt := range opts {
		opt(t)
	}
	if t.provider == nil {
		t.provider = otel.GetTracerProvider()
	}
	t.tracer = t.provider.Tracer(tracerName)
	return t
}

func (t *traced) Execute(ctx context.Context, stmt statement.Statement) (rows []value.Value, err error) {
	op, table := describe(stmt)

	ctx, span := t.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttributeStatement, op),
			attribute.String(AttributeTable, table),
		),
	)
	defer func() { recordAnyErrorAndEndSpan(err, span) }()

	rows, err = t.next.Execute(ctx, stmt)
	span.SetAttributes(attribute.Int(AttributeRows, len(rows)))
	return rows, err
}

func recordAnyErrorAndEndSpan(err error, span trace.Span) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type logged struct {
	next   record.Executor
	logger *slog.Logger
}

// Logged wraps next so each statement is logged at debug level and each
// failure at error level. A nil logger means slog.Default().
func Logged(next record.Executor, logger *slog.Logger) record.Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &logged{next: next, logger: logger}
}

func (l *logged) Execute(ctx context.Context, stmt statement.Statement) ([]value.Value, error) {
	op, table := describe(stmt)
	start := time.Now()

	rows, err := l.next.Execute(ctx, stmt)
	if err != nil {
		l.logger.ErrorContext(ctx, "statement failed",
			"statement", op,
			"table", table,
			"error", err,
		)
		return rows, err
	}

	l.logger.DebugContext(ctx, "statement executed",
		"statement", op,
		"table", table,
		"rows", len(rows),
		"duration", time.Since(start),
	)
	return rows, nil
}

// describe tolerates nil statements so invalid input still reaches the
// wrapped executor, which reports it.
func describe(stmt statement.Statement) (op, table string) {
	s := statement.Deref(stmt)
	if s == nil {
		return "unknown", ""
	}
	return statement.Op(s), s.Target()
}
