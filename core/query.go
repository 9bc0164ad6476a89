package core

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Now is the clock SetEndTime's zero value defers to. Tests override it
// to make "no end_time given" deterministic; production code leaves it
// as time.Now.
var Now = time.Now

// TagSpec is one tag clause of a Query, as given by a caller before
// planning: either a literal filter (exact value required) or a
// group-by clause (either a wildcard over every value, or a whitelist
// of allowed values), per spec.md §4.D.
type TagSpec struct {
	Name    string
	GroupBy bool
	Values  []string
}

// Query is an unplanned, caller-facing time series query: a metric
// name, a set of tag clauses, a time range and an optional aggregation
// pipeline. Plan resolves it against an Interner into an executable
// Plan.
type Query struct {
	Metric        string
	Tags          []TagSpec
	Aggregator    Aggregator
	Rate          bool
	RateConverter RateConverter

	startTime   uint32
	endTime     uint32
	endTimeSet  bool
	tagNamesSet map[string]bool
}

// NewQuery creates a Query over metric with no tags and no time range.
func NewQuery(metric string) *Query {
	return &Query{Metric: metric, tagNamesSet: make(map[string]bool)}
}

// SetStartTime sets the query's inclusive start time. t must be in
// [1, 2^32), and, if an end_time has already been set, strictly less
// than it — checked eagerly here rather than deferred to Plan(),
// matching TsdbQuery.setStartTime's immediate cross-check.
func (q *Query) SetStartTime(t int64) error {
	if t <= 0 || t >= 1<<32 {
		return &InvalidTimestampError{Timestamp: t}
	}
	if q.endTimeSet && uint32(t) >= q.endTime {
		return &TimeRangeInvalidError{StartTime: uint32(t), EndTime: q.endTime}
	}
	q.startTime = uint32(t)
	return nil
}

// SetEndTime sets the query's exclusive end time. t must be in
// [1, 2^32), and strictly greater than start_time if one has already
// been set, checked eagerly here like SetStartTime. Calling SetEndTime
// at all is optional: an end_time is only resolved to "now" at
// EndTime()/Plan() time, not at call time, so two queries built from
// the same Query without an explicit end_time can legitimately observe
// different clock readings if planned minutes apart (spec.md §9's lazy
// end_time design note).
func (q *Query) SetEndTime(t int64) error {
	if t <= 0 || t >= 1<<32 {
		return &InvalidTimestampError{Timestamp: t}
	}
	if q.startTime != 0 && uint32(t) <= q.startTime {
		return &TimeRangeInvalidError{StartTime: q.startTime, EndTime: uint32(t)}
	}
	q.endTime = uint32(t)
	q.endTimeSet = true
	return nil
}

// EndTime returns the query's resolved end time: the value given to
// SetEndTime, or the current wall-clock time if none was set.
func (q *Query) EndTime() uint32 {
	if q.endTimeSet {
		return q.endTime
	}
	return uint32(Now().Unix())
}

// AddTag adds one tag clause. valueSpec is interpreted the way a
// caller would type it: "*" means group by this tag over every value
// present, "a|b|c" means group by this tag but only over that
// whitelist of values, and anything else is a literal exact-match
// filter. A '|' only counts as a whitelist separator starting at
// position 1 — a leading pipe with no other pipe in the string (e.g.
// "|foo") is a literal value, not a one-way split into an empty and a
// non-empty whitelist entry. A tag name given twice is a
// TagConflictError.
func (q *Query) AddTag(name, valueSpec string) error {
	if q.tagNamesSet[name] {
		return &TagConflictError{Name: name}
	}
	spec := TagSpec{Name: name}
	switch {
	case valueSpec == "*":
		spec.GroupBy = true
	case len(valueSpec) > 1 && strings.IndexByte(valueSpec[1:], '|') >= 0:
		spec.GroupBy = true
		spec.Values = strings.Split(valueSpec, "|")
	default:
		spec.Values = []string{valueSpec}
	}
	q.tagNamesSet[name] = true
	q.Tags = append(q.Tags, spec)
	return nil
}

// Plan is a Query resolved against an Interner: ids instead of names,
// tags split into literal_tags (exact value required, spec.md §4.D)
// and group_bys (wildcard or whitelist), both sorted by name_id.
// LiteralTags and GroupByNames never share a name_id (invariant I1).
type Plan struct {
	MetricID []byte

	// LiteralTags is sorted by NameID ascending.
	LiteralTags []TagPair

	// GroupByNames is sorted ascending. Each entry's whitelist (nil
	// for an unrestricted wildcard) is in GroupByWhitelist, keyed by
	// the raw NameID bytes converted to a string.
	GroupByNames     [][]byte
	GroupByWhitelist map[string][][]byte

	StartTime uint32
	EndTime   uint32

	Aggregator    Aggregator
	Rate          bool
	RateConverter RateConverter
}

// Plan resolves q against interner, producing an executable Plan.
// Resolution order follows spec.md §4.D: validate the time range first,
// then the metric, then each tag in turn.
func (q *Query) Plan(interner Interner) (*Plan, error) {
	end := q.EndTime()
	if q.startTime == 0 {
		return nil, &InvalidTimestampError{Timestamp: 0}
	}
	if q.startTime >= end {
		return nil, &TimeRangeInvalidError{StartTime: q.startTime, EndTime: end}
	}

	metricID, err := interner.MetricID(q.Metric)
	if err != nil {
		return nil, err
	}

	var literal []TagPair
	var groupNames [][]byte
	whitelist := make(map[string][][]byte)
	seenNameIDs := make(map[string]bool)

	for _, t := range q.Tags {
		nameID, err := interner.TagNameID(t.Name)
		if err != nil {
			return nil, err
		}
		if seenNameIDs[string(nameID)] {
			return nil, &TagConflictError{Name: t.Name}
		}
		seenNameIDs[string(nameID)] = true

		if !t.GroupBy {
			valueID, err := interner.TagValueID(t.Values[0])
			if err != nil {
				return nil, err
			}
			literal = append(literal, TagPair{NameID: nameID, ValueID: valueID})
			continue
		}

		groupNames = append(groupNames, nameID)
		if len(t.Values) == 0 {
			whitelist[string(nameID)] = nil
			continue
		}
		ids := make([][]byte, 0, len(t.Values))
		for _, v := range t.Values {
			id, err := interner.TagValueID(v)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		whitelist[string(nameID)] = ids
	}

	sort.Slice(literal, func(i, j int) bool { return bytes.Compare(literal[i].NameID, literal[j].NameID) < 0 })
	sort.Slice(groupNames, func(i, j int) bool { return bytes.Compare(groupNames[i], groupNames[j]) < 0 })

	return &Plan{
		MetricID:         metricID,
		LiteralTags:      literal,
		GroupByNames:     groupNames,
		GroupByWhitelist: whitelist,
		StartTime:        q.startTime,
		EndTime:          end,
		Aggregator:       q.Aggregator,
		Rate:             q.Rate,
		RateConverter:    q.RateConverter,
	}, nil
}

// String renders a diagnostic, human-readable form of q, in the same
// spirit as a query's own log-line summary: metric, tags and time
// range, not meant to be parsed back.
func (q *Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query(metric=%s", q.Metric)
	if len(q.Tags) > 0 {
		b.WriteString(", tags={")
		for i, t := range q.Tags {
			if i > 0 {
				b.WriteString(", ")
			}
			switch {
			case t.GroupBy && len(t.Values) == 0:
				fmt.Fprintf(&b, "%s=*", t.Name)
			case t.GroupBy:
				fmt.Fprintf(&b, "%s=%s", t.Name, strings.Join(t.Values, "|"))
			default:
				fmt.Fprintf(&b, "%s=%s", t.Name, t.Values[0])
			}
		}
		b.WriteString("}")
	}
	fmt.Fprintf(&b, ", start_time=%d", q.startTime)
	if q.endTimeSet {
		fmt.Fprintf(&b, ", end_time=%d", q.endTime)
	} else {
		b.WriteString(", end_time=now")
	}
	if q.Rate {
		b.WriteString(", rate=true")
	}
	b.WriteString(")")
	return b.String()
}
