package query

import (
	"bytes"
	"context"
	"sort"

	"github.com/INLOpen/tsdbquery/core"
	"github.com/INLOpen/tsdbquery/filter"
)

// scanRange returns the [start, stop) row-key bounds that cover every
// row whose base_time could hold a point in [startTime, endTime):
// start is startTime backed off by one row width (saturating at 0),
// stop is endTime padded by one row width, with no further rounding
// to a row boundary — the margin itself is the guarantee that the row
// holding startTime/endTime is never excluded (spec.md §4.F, §8
// scenario 1).
func scanRange(schema core.Schema, metricID []byte, startTime, endTime uint32) (start, stop []byte) {
	span := schema.MaxTimespan()
	var startBase uint32
	if startTime > span {
		startBase = startTime - span
	}
	stopBase := endTime + span
	return core.EncodeRowKey(schema, metricID, startBase, nil), core.EncodeRowKey(schema, metricID, stopBase, nil)
}

// Scan drives scanner over plan's time range and row filter, folding
// every returned row into a SpanBuilder keyed by series identity
// (spec.md §4.F). The returned order lists the identity keys in
// ascending byte order — Go string comparison on a raw-byte string is
// exactly bytes.Compare, so a plain sort.Strings reproduces the
// original's TreeMap-with-a-custom-comparator ordering without
// needing one.
func Scan(ctx context.Context, plan *core.Plan, schema core.Schema, scanner core.Scanner) (builders map[string]*core.SpanBuilder, order []string, err error) {
	defer scanner.Close()

	start, stop := scanRange(schema, plan.MetricID, plan.StartTime, plan.EndTime)
	pattern, err := filter.Build(schema, plan.LiteralTags, plan.GroupByNames, plan.GroupByWhitelist)
	if err != nil {
		return nil, nil, err
	}

	scanner.SetStartKey(start)
	scanner.SetStopKey(stop)
	scanner.SetFilter(pattern)

	builders = make(map[string]*core.SpanBuilder)
	for {
		row, err := scanner.Next(ctx)
		if err != nil {
			return nil, nil, &core.StorageError{Op: "scan", Err: err}
		}
		if row == nil {
			break
		}

		gotMetric, err := core.MetricID(schema, row.Key)
		if err != nil {
			return nil, nil, err
		}
		if !bytes.Equal(gotMetric, plan.MetricID) {
			return nil, nil, &core.ScannerInvariantError{WantMetricID: plan.MetricID, GotRow: row.Key}
		}

		identity, err := core.SeriesIdentity(schema, row.Key)
		if err != nil {
			return nil, nil, err
		}
		key := string(identity)
		b, ok := builders[key]
		if !ok {
			b = core.NewSpanBuilder(schema)
			builders[key] = b
			order = append(order, key)
		}
		if err := b.AddRow(row); err != nil {
			return nil, nil, err
		}
	}

	sort.Strings(order)
	return builders, order, nil
}

// Spans builds the final, read-only Spans from a Scan's builders, in
// the same order Scan returned them in.
func Spans(builders map[string]*core.SpanBuilder, order []string) []*core.Span {
	out := make([]*core.Span, len(order))
	for i, key := range order {
		out[i] = builders[key].Build()
	}
	return out
}
