package core

// Aggregator folds the values a SpanGroup emits for a single timestamp
// into one output value (sum, avg, max, ...). Its catalogue of concrete
// implementations is an external collaborator (spec.md §1) — this
// module only ever holds a reference to one and calls it.
type Aggregator interface {
	Name() string
	Aggregate(values []float64) float64
}

// RateConverter turns a raw counter SeekableView into a rate-of-change
// view (delta value / delta time between consecutive points). Like
// Aggregator, concrete converters (with counter-rollover handling,
// rate resets, etc.) live outside this module.
type RateConverter interface {
	Convert(view SeekableView) SeekableView
}
