package query

import "github.com/INLOpen/tsdbquery/core"

// aggregatingView folds every point sharing a timestamp into one value
// via an Aggregator, consuming a SeekableView that already yields
// points in ascending timestamp order (a SpanGroup's merged view, most
// of the time, where more than one Span can carry a point at the same
// instant).
type aggregatingView struct {
	source  core.SeekableView
	agg     core.Aggregator
	pending *core.DataPoint
	err     error
}

// Aggregate wraps source so that every run of consecutive points
// sharing a timestamp collapses into a single aggregated point
// (spec.md §4.G).
func Aggregate(source core.SeekableView, agg core.Aggregator) core.SeekableView {
	v := &aggregatingView{source: source, agg: agg}
	v.pull()
	return v
}

func (v *aggregatingView) pull() {
	if !v.source.HasNext() {
		v.pending = nil
		return
	}
	p, err := v.source.Next()
	if err != nil {
		v.pending = nil
		v.err = err
		return
	}
	v.pending = &p
}

func (v *aggregatingView) HasNext() bool { return v.pending != nil }

func (v *aggregatingView) Next() (core.DataPoint, error) {
	if v.pending == nil {
		if v.err != nil {
			return core.DataPoint{}, v.err
		}
		return core.DataPoint{}, &core.ExhaustedError{What: "aggregating view"}
	}
	ts := v.pending.Timestamp()
	values := []float64{pointValue(*v.pending)}
	v.pull()
	for v.pending != nil && v.pending.Timestamp() == ts {
		values = append(values, pointValue(*v.pending))
		v.pull()
	}
	return core.NewFloatPoint(ts, v.agg.Aggregate(values)), nil
}

func (v *aggregatingView) Seek(timestamp uint32) {
	if v.pending != nil && v.pending.Timestamp() >= timestamp {
		return
	}
	v.source.Seek(timestamp)
	v.pull()
}

func pointValue(p core.DataPoint) float64 {
	if p.IsInteger() {
		return float64(p.LongValue())
	}
	return p.DoubleValue()
}
