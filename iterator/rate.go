package iterator

import "github.com/INLOpen/tsdbquery/core"

// rateView turns a raw view's successive points into rate-of-change
// values: (value[i] - value[i-1]) / (timestamp[i] - timestamp[i-1]).
// The underlying view's first point has no predecessor and is
// consumed to prime rateView without ever being emitted itself.
type rateView struct {
	source core.SeekableView
	prev   core.DataPoint
	ready  bool
	err    error
}

// Rate wraps source so that it yields rates instead of raw values. It
// is the plain delta-over-delta-time implementation; a query with a
// richer core.RateConverter (counter rollover, rate resets, ...)
// should prefer that instead.
func Rate(source core.SeekableView) core.SeekableView {
	r := &rateView{source: source}
	r.prime()
	return r
}

func (r *rateView) prime() {
	if !r.source.HasNext() {
		r.ready = false
		return
	}
	pt, err := r.source.Next()
	if err != nil {
		r.ready = false
		r.err = err
		return
	}
	r.prev = pt
	r.ready = true
}

// HasNext is true only once a previous point has been buffered and
// the source has at least one more to pair it with.
func (r *rateView) HasNext() bool {
	return r.ready && r.source.HasNext()
}

func (r *rateView) Next() (core.DataPoint, error) {
	if !r.HasNext() {
		if r.err != nil {
			return core.DataPoint{}, r.err
		}
		return core.DataPoint{}, &core.ExhaustedError{What: "rate view"}
	}
	cur, err := r.source.Next()
	if err != nil {
		return core.DataPoint{}, err
	}
	dt := cur.Timestamp() - r.prev.Timestamp()
	dv := valueOf(cur) - valueOf(r.prev)
	out := core.NewFloatPoint(cur.Timestamp(), dv/float64(dt))
	r.prev = cur
	return out, nil
}

func (r *rateView) Seek(timestamp uint32) {
	r.source.Seek(timestamp)
	r.prime()
}

func valueOf(p core.DataPoint) float64 {
	if p.IsInteger() {
		return float64(p.LongValue())
	}
	return p.DoubleValue()
}
