package iterator

import (
	"container/heap"

	"github.com/INLOpen/tsdbquery/core"
)

// primedView wraps a core.SeekableView together with the point it
// will yield next, so a heap of these can compare timestamps without
// calling back into the underlying view on every comparison. It is
// itself a SeekableView: advancing it returns the buffered point and
// pulls the next one in; seeking past the buffered point forwards the
// seek to the underlying view and re-buffers.
type primedView struct {
	view      core.SeekableView
	buffered  core.DataPoint
	exhausted bool
}

func newPrimedView(view core.SeekableView) *primedView {
	p := &primedView{view: view}
	p.refill()
	return p
}

func (p *primedView) refill() {
	if !p.view.HasNext() {
		p.exhausted = true
		return
	}
	pt, err := p.view.Next()
	if err != nil {
		p.exhausted = true
		return
	}
	p.buffered = pt
}

func (p *primedView) HasNext() bool { return !p.exhausted }

func (p *primedView) Next() (core.DataPoint, error) {
	if p.exhausted {
		return core.DataPoint{}, &core.ExhaustedError{What: "merge source view"}
	}
	out := p.buffered
	p.refill()
	return out, nil
}

func (p *primedView) Seek(timestamp uint32) {
	if p.exhausted || p.buffered.Timestamp() >= timestamp {
		return
	}
	p.view.Seek(timestamp)
	p.refill()
}

// minHeap orders a set of primed views by the timestamp of their
// buffered point, letting Merge always pull the globally earliest
// point next without re-scanning every view on each step. Grounded on
// the same container/heap min-heap shape used to fan multiple sources
// into one ordered stream, generalised from a single concrete node
// type to any core.SeekableView.
type minHeap []*primedView

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].buffered.Timestamp() < h[j].buffered.Timestamp() }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)         { *h = append(*h, x.(*primedView)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// mergedView is the SeekableView Merge hands back: a heap of primed
// source views, always rooted at the one with the smallest buffered
// timestamp.
type mergedView struct {
	heap minHeap
}

// Merge combines several SeekableViews (typically one per Span in a
// SpanGroup) into a single SeekableView that yields every underlying
// point in ascending timestamp order, spec.md §4.H. Views that are
// already exhausted are dropped up front.
func Merge(views []core.SeekableView) core.SeekableView {
	h := make(minHeap, 0, len(views))
	for _, v := range views {
		pv := newPrimedView(v)
		if pv.HasNext() {
			h = append(h, pv)
		}
	}
	heap.Init(&h)
	return &mergedView{heap: h}
}

func (m *mergedView) HasNext() bool {
	return m.heap.Len() > 0
}

func (m *mergedView) Next() (core.DataPoint, error) {
	if m.heap.Len() == 0 {
		return core.DataPoint{}, &core.ExhaustedError{What: "merged view"}
	}
	top := m.heap[0]
	p, err := top.Next()
	if err != nil {
		return core.DataPoint{}, err
	}
	if top.HasNext() {
		heap.Fix(&m.heap, 0)
	} else {
		heap.Pop(&m.heap)
	}
	return p, nil
}

func (m *mergedView) Seek(timestamp uint32) {
	for _, pv := range m.heap {
		pv.Seek(timestamp)
	}
	live := m.heap[:0]
	for _, pv := range m.heap {
		if pv.HasNext() {
			live = append(live, pv)
		}
	}
	m.heap = live
	heap.Init(&m.heap)
}
