package core

import (
	"bytes"
	"encoding/binary"
)

// TagPair is one (tag_name_id, tag_value_id) pair as it appears in a
// row key's tag section, in ascending name_id order.
type TagPair struct {
	NameID  []byte
	ValueID []byte
}

// RowKey is the fixed binary layout described in spec.md §3:
//
//	[ metric_id : W_m ][ base_time : T, big-endian u32 ][ (name_id : W_n, value_id : W_v) x k ]
//
// Tag pairs are stored in ascending name_id order with no duplicate
// name_id; nothing in this package enforces that invariant (it's upheld
// by whoever writes the store): decoding does not check it, and
// EncodeRowKey writes tags in the order it is given.
type RowKey []byte

// EncodeRowKey builds a row key from its components. tags must already
// be sorted by NameID; EncodeRowKey does not sort them, matching the
// planner's responsibility (spec.md §4.D) to keep literal_tags/group_bys
// pre-sorted.
func EncodeRowKey(schema Schema, metricID []byte, baseTime uint32, tags []TagPair) RowKey {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(metricID)
	var tsBytes [TimestampBytes]byte
	binary.BigEndian.PutUint32(tsBytes[:], baseTime)
	buf.Write(tsBytes[:])
	for _, t := range tags {
		buf.Write(t.NameID)
		buf.Write(t.ValueID)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return RowKey(out)
}

// validate checks that key's length matches
// W_m + T + k*(W_n+W_v) for some k >= 0, returning k.
func validate(schema Schema, key []byte) (int, error) {
	head := schema.MetricTimestampWidth()
	pair := schema.TagPairWidth()
	if len(key) < head {
		return 0, &MalformedKeyError{Key: key, Reason: "shorter than metric_id+base_time"}
	}
	rem := len(key) - head
	if pair <= 0 || rem%pair != 0 {
		return 0, &MalformedKeyError{Key: key, Reason: "tag section is not a whole number of tag pairs"}
	}
	return rem / pair, nil
}

// MetricID returns the metric_id prefix of key.
func MetricID(schema Schema, key []byte) ([]byte, error) {
	if _, err := validate(schema, key); err != nil {
		return nil, err
	}
	return key[:schema.MetricWidth], nil
}

// BaseTime decodes the base_time field of key.
func BaseTime(schema Schema, key []byte) (uint32, error) {
	if _, err := validate(schema, key); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(key[schema.MetricWidth : schema.MetricWidth+TimestampBytes]), nil
}

// TagBytes returns the raw tag section of key (everything after
// metric_id and base_time), unparsed.
func TagBytes(schema Schema, key []byte) ([]byte, error) {
	if _, err := validate(schema, key); err != nil {
		return nil, err
	}
	return key[schema.MetricTimestampWidth():], nil
}

// Split decodes key into its metric id, base time and tag pairs.
// Fails with MalformedKeyError if key's length is not
// W_m + T + k*(W_n+W_v) for some k >= 0 (spec.md §4.A).
func Split(schema Schema, key []byte) (metricID []byte, baseTime uint32, tags []TagPair, err error) {
	k, err := validate(schema, key)
	if err != nil {
		return nil, 0, nil, err
	}
	metricID = key[:schema.MetricWidth]
	baseTime = binary.BigEndian.Uint32(key[schema.MetricWidth : schema.MetricWidth+TimestampBytes])
	tags = make([]TagPair, k)
	pair := schema.TagPairWidth()
	off := schema.MetricTimestampWidth()
	for i := 0; i < k; i++ {
		start := off + i*pair
		tags[i] = TagPair{
			NameID:  key[start : start+schema.TagNameWidth],
			ValueID: key[start+schema.TagNameWidth : start+pair],
		}
	}
	return metricID, baseTime, tags, nil
}

// SeriesIdentity returns the byte range of key that identifies its
// series: metric_id followed by the tag section, with the base_time
// bytes excluded. Two row keys produce equal SeriesIdentity results iff
// they belong to the same series (spec.md §3, "series identity").
func SeriesIdentity(schema Schema, key []byte) ([]byte, error) {
	if _, err := validate(schema, key); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(key)-TimestampBytes)
	out = append(out, key[:schema.MetricWidth]...)
	out = append(out, key[schema.MetricTimestampWidth():]...)
	return out, nil
}

// ValueIDForName scans the tag section of key for name_id and returns
// its paired value_id, or (nil, false) if name_id is absent. Both the
// tag section and name_id are assumed to come from schema-consistent
// sources; callers driving a merge across several names in sorted order
// should prefer a direct two-pointer walk over Split's output instead of
// calling this per name (spec.md §9's quadratic-group-extraction note).
func ValueIDForName(schema Schema, key []byte, nameID []byte) ([]byte, bool) {
	tagBytes, err := TagBytes(schema, key)
	if err != nil {
		return nil, false
	}
	pair := schema.TagPairWidth()
	for off := 0; off+pair <= len(tagBytes); off += pair {
		if bytes.Equal(tagBytes[off:off+schema.TagNameWidth], nameID) {
			return tagBytes[off+schema.TagNameWidth : off+pair], true
		}
	}
	return nil, false
}
