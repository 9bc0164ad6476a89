package filter

import (
	"bytes"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/text/encoding/charmap"

	"github.com/INLOpen/tsdbquery/core"
)

// entry is one merged, name_id-sorted tag constraint: either a literal
// exact value, a whitelist of allowed values, or (literal == nil &&
// values == nil) an unrestricted group-by wildcard.
type entry struct {
	nameID  []byte
	literal []byte
	values  [][]byte
}

// Build constructs a server-side row-key regex filter matching every
// row whose tag section satisfies the given literal tags (exact value
// required) and group-by tags (wildcard, or a whitelist of allowed
// values) — spec.md §4.E. It matches against the whole row key:
// metric_id and base_time are skipped with a fixed-width wildcard (the
// scan's start/stop keys already bound them, but the filter still
// needs to account for their bytes), then the literal and group-by
// tags are merged in ascending name_id order, allowing any number of
// unrelated tag pairs to fall between, before, or after the ones it
// cares about.
//
// Row key bytes are not guaranteed to be valid UTF-8 and Go's regexp
// package matches rune-wise, so both name/value ids and the pattern
// itself are round-tripped through ISO-8859-1, which maps every byte
// value to exactly one rune and back. This keeps the constructed
// pattern byte-for-byte faithful to the ids it was built from, the way
// a server-side byte-oriented regex comparator configured for
// ISO-8859-1 would interpret it.
func Build(schema core.Schema, literalTags []core.TagPair, groupByNames [][]byte, whitelist map[string][][]byte) ([]byte, error) {
	merged := make([]entry, 0, len(literalTags)+len(groupByNames))
	for _, t := range literalTags {
		merged = append(merged, entry{nameID: t.NameID, literal: t.ValueID})
	}
	for _, n := range groupByNames {
		merged = append(merged, entry{nameID: n, values: whitelist[string(n)]})
	}
	sort.Slice(merged, func(i, j int) bool { return bytes.Compare(merged[i].nameID, merged[j].nameID) < 0 })

	toLatin1 := charmap.ISO8859_1.NewDecoder().String
	pairWidth := strconv.Itoa(schema.TagPairWidth())
	skipAnyTags := "(?:.{" + pairWidth + "})*"

	b := core.GetBuffer()
	defer core.PutBuffer(b)
	b.WriteString("(?s)^.{")
	b.WriteString(strconv.Itoa(schema.MetricTimestampWidth()))
	b.WriteString("}")
	for _, e := range merged {
		b.WriteString(skipAnyTags)

		nameStr, err := toLatin1(string(e.nameID))
		if err != nil {
			return nil, err
		}
		b.WriteString(regexp.QuoteMeta(nameStr))

		switch {
		case e.literal != nil:
			valueStr, err := toLatin1(string(e.literal))
			if err != nil {
				return nil, err
			}
			b.WriteString(regexp.QuoteMeta(valueStr))
		case len(e.values) > 0:
			b.WriteString("(?:")
			for i, v := range e.values {
				if i > 0 {
					b.WriteString("|")
				}
				vStr, err := toLatin1(string(v))
				if err != nil {
					return nil, err
				}
				b.WriteString(regexp.QuoteMeta(vStr))
			}
			b.WriteString(")")
		default:
			b.WriteString(".{" + strconv.Itoa(schema.TagValueWidth) + "}")
		}
	}
	b.WriteString(skipAnyTags)
	b.WriteString("$")

	out, err := charmap.ISO8859_1.NewEncoder().String(b.String())
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
