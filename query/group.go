package query

import (
	"bytes"
	"log/slog"
	"sort"

	"github.com/INLOpen/tsdbquery/core"
	"github.com/INLOpen/tsdbquery/iterator"
)

// SpanGroup is one output series of a grouped query: the group-by tag
// values shared by every Span folded into it, and those Spans
// themselves (spec.md §4.G).
type SpanGroup struct {
	// GroupValues maps a group-by tag's name_id (as a string, for use
	// as a map key) to the value_id every Span in the group shares.
	GroupValues map[string][]byte
	Spans       []*core.Span
}

// Iterator merges every Span in the group into one SeekableView in
// ascending timestamp order (component H), via a heap-based k-way
// merge rather than repeatedly rescanning every Span's current point.
func (g *SpanGroup) Iterator() core.SeekableView {
	views := make([]core.SeekableView, len(g.Spans))
	for i, s := range g.Spans {
		views[i] = s.Iterator()
	}
	return iterator.Merge(views)
}

// GroupSpans partitions spans by the distinct combination of values
// their group-by tags carry (spec.md §4.G). Each span's group key is
// extracted with a two-pointer merge against its sorted tag section
// rather than one core.ValueIDForName call per group-by name
// (spec.md §9's quadratic-extraction note). A span missing one of the
// group-by tags outright can't belong to any group and is dropped,
// with a log line rather than a silent gap in the output.
func GroupSpans(schema core.Schema, spans []*core.Span, groupByNames [][]byte, logger *slog.Logger) ([]*SpanGroup, error) {
	if logger == nil {
		logger = slog.Default()
	}
	groups := make(map[string]*SpanGroup)
	var order []string

	for _, span := range spans {
		rowSeqs := span.RowSeqs()
		if len(rowSeqs) == 0 {
			continue
		}
		_, _, tags, err := core.Split(schema, rowSeqs[0].Key())
		if err != nil {
			return nil, err
		}
		key, values, ok := extractGroupKey(tags, groupByNames)
		if !ok {
			logger.Info("dropping span missing a group-by tag", "identity", span.Identity())
			continue
		}
		g, exists := groups[key]
		if !exists {
			g = &SpanGroup{GroupValues: values}
			groups[key] = g
			order = append(order, key)
		}
		g.Spans = append(g.Spans, span)
	}

	sort.Strings(order)
	out := make([]*SpanGroup, len(order))
	for i, key := range order {
		out[i] = groups[key]
	}
	return out, nil
}

// extractGroupKey walks tags (sorted by NameID, a row key invariant)
// and groupByNames (sorted by Plan) in lockstep, collecting the value
// id paired with each requested name in a single pass. ok is false if
// some requested name never showed up in tags.
func extractGroupKey(tags []core.TagPair, groupByNames [][]byte) (key string, values map[string][]byte, ok bool) {
	values = make(map[string][]byte, len(groupByNames))
	var buf bytes.Buffer
	i, j := 0, 0
	for i < len(tags) && j < len(groupByNames) {
		switch cmp := bytes.Compare(tags[i].NameID, groupByNames[j]); {
		case cmp == 0:
			values[string(groupByNames[j])] = tags[i].ValueID
			buf.Write(groupByNames[j])
			buf.Write(tags[i].ValueID)
			i++
			j++
		case cmp < 0:
			i++
		default:
			j++
		}
	}
	if j != len(groupByNames) {
		return "", nil, false
	}
	return buf.String(), values, true
}
