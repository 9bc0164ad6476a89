package core

import "bytes"

// Span is an ordered, read-only sequence of RowSeqs belonging to one
// series (spec.md §4.C): each RowSeq holds one scanned row or several
// adjacent rows merged into it, base_time strictly increasing across
// them, assembled by a SpanBuilder during a scan and never mutated
// afterwards.
type Span struct {
	schema   Schema
	identity []byte
	rowSeqs  []*RowSeq
	offsets  []int
	total    int
}

// Identity returns the series identity (metric_id + tag bytes) all of
// this Span's rows share.
func (s *Span) Identity() []byte { return s.identity }

// RowSeqs returns the Span's RowSeqs in base_time order. Callers must
// not mutate the returned slice or its elements.
func (s *Span) RowSeqs() []*RowSeq { return s.rowSeqs }

// Size returns the total number of points across every RowSeq in s.
func (s *Span) Size() int { return s.total }

func (s *Span) resolve(i int) (*RowSeq, int) {
	lo, hi := 0, len(s.offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.offsets[mid] <= i {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return s.rowSeqs[lo], i - s.offsets[lo]
}

// Timestamp returns the timestamp of the ith point across the whole Span.
func (s *Span) Timestamp(i int) uint32 {
	seq, j := s.resolve(i)
	return seq.Timestamp(j)
}

// IsInteger reports whether the ith point across the whole Span is an
// integer value.
func (s *Span) IsInteger(i int) bool {
	seq, j := s.resolve(i)
	return seq.IsInteger(j)
}

// LongValue returns the ith point across the whole Span as an integer.
func (s *Span) LongValue(i int) int64 {
	seq, j := s.resolve(i)
	return seq.LongValue(j)
}

// DoubleValue returns the ith point across the whole Span as a float.
func (s *Span) DoubleValue(i int) float64 {
	seq, j := s.resolve(i)
	return seq.DoubleValue(j)
}

// Iterator returns a SeekableView walking every RowSeq in s in order.
func (s *Span) Iterator() SeekableView {
	it := &spanIterator{span: s}
	it.advance()
	return it
}

type spanIterator struct {
	span  *Span
	rsIdx int
	cur   SeekableView
}

func (it *spanIterator) advance() {
	for it.rsIdx < len(it.span.rowSeqs) {
		cur := it.span.rowSeqs[it.rsIdx].Iterator()
		if cur.HasNext() {
			it.cur = cur
			return
		}
		it.rsIdx++
	}
	it.cur = nil
}

func (it *spanIterator) HasNext() bool {
	return it.cur != nil && it.cur.HasNext()
}

func (it *spanIterator) Next() (DataPoint, error) {
	if it.cur == nil {
		return DataPoint{}, &ExhaustedError{What: "span iterator"}
	}
	p, err := it.cur.Next()
	if err != nil {
		return DataPoint{}, err
	}
	if !it.cur.HasNext() {
		it.rsIdx++
		it.advance()
	}
	return p, nil
}

func (it *spanIterator) Seek(timestamp uint32) {
	startIdx := it.rsIdx
	for it.rsIdx < len(it.span.rowSeqs) {
		seq := it.span.rowSeqs[it.rsIdx]
		if seq.Size() > 0 && seq.Timestamp(seq.Size()-1) < timestamp {
			it.rsIdx++
			continue
		}
		break
	}
	if it.rsIdx != startIdx || it.cur == nil {
		it.advance()
	}
	if it.cur != nil {
		it.cur.Seek(timestamp)
	}
}

// SpanBuilder accumulates scanned rows for one series and produces a
// finished, read-only Span via Build. It is the only way to construct
// a Span (spec.md §9's builder/finalize design note) — once Build
// returns, nothing can append to the Span it handed back.
type SpanBuilder struct {
	schema   Schema
	identity []byte
	rowSeqs  []*RowSeq
}

// NewSpanBuilder creates an empty SpanBuilder bound to schema.
func NewSpanBuilder(schema Schema) *SpanBuilder {
	return &SpanBuilder{schema: schema}
}

// AddRow folds one scanned row into the builder. Rows must arrive in
// increasing base_time order and must all belong to the same series;
// violating either is reported rather than silently dropped. A row
// whose base_time is close enough to the builder's last RowSeq is
// merged into it (AddRow); otherwise it starts a new RowSeq.
func (b *SpanBuilder) AddRow(result *ScanResult) error {
	if len(result.Cells) == 0 {
		return &MalformedKeyError{Key: result.Key, Reason: "row has no cells"}
	}
	identity, err := SeriesIdentity(b.schema, result.Key)
	if err != nil {
		return err
	}
	if b.identity == nil {
		b.identity = append([]byte(nil), identity...)
	} else if !bytes.Equal(b.identity, identity) {
		return &SeriesMismatchError{Reason: "series identity mismatch", SpanRow: b.identity, IncomingRow: identity}
	}

	otherBase, err := BaseTime(b.schema, result.Key)
	if err != nil {
		return err
	}

	if n := len(b.rowSeqs); n > 0 {
		last := b.rowSeqs[n-1]
		if otherBase <= last.BaseTime() {
			return &OutOfOrderRowError{LastTimestamp: last.BaseTime(), NewTimestamp0: otherBase}
		}
		maxDelta, _, err := decodeQualifier(b.schema, result.Cells[len(result.Cells)-1].Qualifier)
		if err != nil {
			return err
		}
		merged := (otherBase - last.BaseTime()) + uint32(maxDelta)
		if CanTimeDeltaFit(b.schema, merged) {
			return last.AddRow(result)
		}
	}

	seq := NewRowSeq(b.schema)
	if err := seq.SetRow(result); err != nil {
		return err
	}
	if n := len(b.rowSeqs); n > 0 {
		last := b.rowSeqs[n-1]
		lastTs := last.Timestamp(last.Size() - 1)
		if lastTs >= seq.Timestamp(0) {
			return &OutOfOrderRowError{LastTimestamp: lastTs, NewTimestamp0: seq.Timestamp(0)}
		}
	}
	b.rowSeqs = append(b.rowSeqs, seq)
	return nil
}

// Build finalises the builder into a read-only Span. The builder must
// not be reused afterwards.
func (b *SpanBuilder) Build() *Span {
	offsets := make([]int, len(b.rowSeqs))
	total := 0
	for i, seq := range b.rowSeqs {
		offsets[i] = total
		total += seq.Size()
	}
	return &Span{
		schema:   b.schema,
		identity: b.identity,
		rowSeqs:  b.rowSeqs,
		offsets:  offsets,
		total:    total,
	}
}
