package core

// DataPoint is a read-only timestamp/value pair. It carries its value
// directly rather than referencing back into a RowSeq so that derived
// views (rate conversion, aggregation) can synthesize points that
// never existed in storage.
type DataPoint struct {
	timestamp   uint32
	isInteger   bool
	longValue   int64
	doubleValue float64
}

// NewIntegerPoint creates a DataPoint holding an integer value.
func NewIntegerPoint(timestamp uint32, value int64) DataPoint {
	return DataPoint{timestamp: timestamp, isInteger: true, longValue: value}
}

// NewFloatPoint creates a DataPoint holding a floating point value.
func NewFloatPoint(timestamp uint32, value float64) DataPoint {
	return DataPoint{timestamp: timestamp, doubleValue: value}
}

// Timestamp returns the point's unix timestamp in seconds.
func (p DataPoint) Timestamp() uint32 { return p.timestamp }

// IsInteger reports whether the point's value was stored as an integer.
func (p DataPoint) IsInteger() bool { return p.isInteger }

// LongValue returns the point's value as a signed integer. Only valid
// when IsInteger is true.
func (p DataPoint) LongValue() int64 { return p.longValue }

// DoubleValue returns the point's value as a float, widening an
// integer value if necessary. Only exact when IsInteger is false.
func (p DataPoint) DoubleValue() float64 {
	if p.isInteger {
		return float64(p.longValue)
	}
	return p.doubleValue
}

// SeekableView is the common iteration contract implemented by a
// single RowSeq, a Span (merging its RowSeqs) and, at the SpanGroup
// level, the cross-Span k-way merge — spec.md §4.H. HasNext/Next walk
// forward in strictly increasing timestamp order; Seek discards points
// strictly before timestamp and is a no-op if the view is already
// positioned at or past it. Next fails with ExhaustedError if HasNext
// was false (spec.md §4.H).
type SeekableView interface {
	HasNext() bool
	Next() (DataPoint, error)
	Seek(timestamp uint32)
}

// rowSeqIterator is the SeekableView over a single RowSeq.
type rowSeqIterator struct {
	seq *RowSeq
	pos int
}

// Iterator returns a SeekableView over r's points.
func (r *RowSeq) Iterator() SeekableView {
	return &rowSeqIterator{seq: r}
}

func (it *rowSeqIterator) HasNext() bool {
	return it.pos < it.seq.Size()
}

func (it *rowSeqIterator) Next() (DataPoint, error) {
	if !it.HasNext() {
		return DataPoint{}, &ExhaustedError{What: "RowSeq iterator"}
	}
	idx := it.pos
	it.pos++
	if it.seq.IsInteger(idx) {
		return NewIntegerPoint(it.seq.Timestamp(idx), it.seq.LongValue(idx)), nil
	}
	return NewFloatPoint(it.seq.Timestamp(idx), it.seq.DoubleValue(idx)), nil
}

func (it *rowSeqIterator) Seek(timestamp uint32) {
	for it.pos < it.seq.Size() && it.seq.Timestamp(it.pos) < timestamp {
		it.pos++
	}
}
