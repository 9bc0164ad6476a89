package query

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/INLOpen/tsdbquery/core"
	"github.com/INLOpen/tsdbquery/iterator"
)

// Executor runs a planned Query end to end against one Scanner: scan
// the store, assemble Spans, then group them (components F and G).
// Logger and Tracer are both optional; a nil Logger falls back to
// slog.Default and a nil Tracer skips span creation rather than
// reaching for a no-op implementation.
type Executor struct {
	Schema  core.Schema
	Scanner core.Scanner
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

// Run scans plan's range and filter, folds the results into Spans,
// and groups them by plan's group-by tags.
func (e *Executor) Run(ctx context.Context, plan *core.Plan) ([]*SpanGroup, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if e.Tracer != nil {
		var span trace.Span
		ctx, span = e.Tracer.Start(ctx, "query.Scan")
		defer span.End()
	}

	builders, order, err := Scan(ctx, plan, e.Schema, e.Scanner)
	if err != nil {
		return nil, err
	}
	spans := Spans(builders, order)

	groups, err := GroupSpans(e.Schema, spans, plan.GroupByNames, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("scan complete",
		"metric_id", plan.MetricID,
		"series", len(spans),
		"groups", len(groups),
	)

	return groups, nil
}

// ApplyAggregate folds a SpanGroup's merged view down to one value per
// timestamp using plan's Aggregator. If plan has no Aggregator, view
// is returned unchanged — safe only when the caller knows the group
// can't carry more than one point at the same timestamp.
func ApplyAggregate(view core.SeekableView, plan *core.Plan) core.SeekableView {
	if plan.Aggregator == nil {
		return view
	}
	return Aggregate(view, plan.Aggregator)
}

// ApplyRate wraps view in a rate-of-change view if plan asked for one,
// preferring plan's own RateConverter when it has one and falling back
// to the plain delta-over-delta-time implementation otherwise. If plan
// didn't ask for a rate, view is returned unchanged.
func ApplyRate(view core.SeekableView, plan *core.Plan) core.SeekableView {
	if !plan.Rate {
		return view
	}
	if plan.RateConverter != nil {
		return plan.RateConverter.Convert(view)
	}
	return iterator.Rate(view)
}
