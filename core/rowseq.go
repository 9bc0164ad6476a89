package core

import (
	"encoding/binary"
	"math"
)

// rowPoint is one decoded cell: a time delta relative to the RowSeq's
// base_time, the low flag bits from the qualifier, and the raw value
// bytes. It mirrors the (delta, flags, value) triple described in
// spec.md §4.B, kept as a Go slice of small structs rather than a
// literal packed byte array — the packing spec.md describes is an
// artifact of the original's memory layout, not an external contract.
type rowPoint struct {
	delta uint16
	flags uint16
	value []byte
}

// floatFlag and lengthMask split a point's flag bits (spec.md §3's
// "upper 16-F bits are a time delta ... the low F bits encode
// value-type flags") the same way the original row format does: the
// top flag bit distinguishes integer from floating point, and the
// remaining bits hold (byte length of the value) - 1.
func floatFlag(flagBits uint) uint16  { return 1 << (flagBits - 1) }
func lengthMask(flagBits uint) uint16 { return floatFlag(flagBits) - 1 }

func decodeQualifier(schema Schema, qualifier []byte) (delta uint16, flags uint16, err error) {
	if len(qualifier) != 2 {
		return 0, 0, &MalformedKeyError{Key: qualifier, Reason: "cell qualifier must be 2 bytes"}
	}
	q := binary.BigEndian.Uint16(qualifier)
	mask := uint16(1)<<schema.FlagBits - 1
	return q >> schema.FlagBits, q & mask, nil
}

// EncodeQualifier packs delta and flags into the 2-byte cell
// qualifier decodeQualifier reverses. Exposed for Scanner
// implementations and tests that need to construct cells directly.
func EncodeQualifier(schema Schema, delta uint16, flags uint16) []byte {
	q := delta<<schema.FlagBits | flags
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, q)
	return buf
}

// CanTimeDeltaFit reports whether delta seconds fits in the
// 16-FlagBits-wide delta field of a cell qualifier, i.e. whether a
// point that many seconds after a row's base_time can be represented
// without rebasing. Callers merging a second row into a RowSeq must
// check this (against the rebased delta) before calling AddRow.
func CanTimeDeltaFit(schema Schema, delta uint32) bool {
	return delta < schema.MaxTimespan()
}

// RowSeq is the parsed representation of one scanned row: its key (for
// identity checks), its decoded base_time, and its points in strictly
// increasing delta order (spec.md §3, §4.B).
type RowSeq struct {
	schema   Schema
	key      []byte
	baseTime uint32
	points   []rowPoint
}

// NewRowSeq creates an empty RowSeq bound to schema. Call SetRow before
// using any other method.
func NewRowSeq(schema Schema) *RowSeq {
	return &RowSeq{schema: schema}
}

// Key returns the row-key bytes this RowSeq was built from.
func (r *RowSeq) Key() []byte { return r.key }

// BaseTime returns the row's base_time.
func (r *RowSeq) BaseTime() uint32 { return r.baseTime }

// SetRow initialises r from a freshly scanned row. The row must
// contain at least one cell, and its cells must be sorted by qualifier
// ascending (the store's contract, spec.md §6).
func (r *RowSeq) SetRow(result *ScanResult) error {
	if len(result.Cells) == 0 {
		return &MalformedKeyError{Key: result.Key, Reason: "row has no cells"}
	}
	baseTime, err := BaseTime(r.schema, result.Key)
	if err != nil {
		return err
	}
	points := make([]rowPoint, 0, len(result.Cells))
	var lastDelta int32 = -1
	for _, c := range result.Cells {
		delta, flags, err := decodeQualifier(r.schema, c.Qualifier)
		if err != nil {
			return err
		}
		if int32(delta) <= lastDelta {
			return &MalformedKeyError{Key: result.Key, Reason: "cells are not strictly increasing by delta"}
		}
		lastDelta = int32(delta)
		points = append(points, rowPoint{delta: delta, flags: flags, value: c.Value})
	}
	r.key = result.Key
	r.baseTime = baseTime
	r.points = points
	return nil
}

// AddRow appends the cells of another scanned row onto r. other's
// base_time must be strictly greater than r's, and every resulting
// delta (other's base_time - r's base_time, plus other's own delta)
// must still fit the qualifier's delta field; both conditions are
// programming errors if violated, since the Span that owns r is
// responsible for routing a row that doesn't fit into a new RowSeq
// instead (spec.md §4.B, §4.C).
func (r *RowSeq) AddRow(result *ScanResult) error {
	if len(result.Cells) == 0 {
		return &MalformedKeyError{Key: result.Key, Reason: "row has no cells"}
	}
	otherBase, err := BaseTime(r.schema, result.Key)
	if err != nil {
		return err
	}
	if otherBase <= r.baseTime {
		return &OutOfOrderRowError{LastTimestamp: r.baseTime, NewTimestamp0: otherBase}
	}
	rebaseOffset := otherBase - r.baseTime
	lastDelta := r.points[len(r.points)-1].delta
	for _, c := range result.Cells {
		delta, flags, err := decodeQualifier(r.schema, c.Qualifier)
		if err != nil {
			return err
		}
		rebased := rebaseOffset + uint32(delta)
		if !CanTimeDeltaFit(r.schema, rebased) {
			return &OutOfOrderRowError{LastTimestamp: r.baseTime + uint32(lastDelta), NewTimestamp0: r.baseTime + rebased}
		}
		if rebased <= uint32(lastDelta) {
			return &OutOfOrderRowError{LastTimestamp: r.baseTime + uint32(lastDelta), NewTimestamp0: r.baseTime + rebased}
		}
		r.points = append(r.points, rowPoint{delta: uint16(rebased), flags: flags, value: c.Value})
		lastDelta = uint16(rebased)
	}
	return nil
}

// Size returns the number of points in r.
func (r *RowSeq) Size() int { return len(r.points) }

// Timestamp returns base_time + delta_i.
func (r *RowSeq) Timestamp(i int) uint32 { return r.baseTime + uint32(r.points[i].delta) }

// IsInteger reports whether the ith point is an integer value.
func (r *RowSeq) IsInteger(i int) bool {
	return r.points[i].flags&floatFlag(r.schema.FlagBits) == 0
}

// LongValue returns the ith point interpreted as a big-endian signed
// integer of (flags & lengthMask)+1 bytes.
func (r *RowSeq) LongValue(i int) int64 {
	v := r.points[i].value
	length := int(r.points[i].flags&lengthMask(r.schema.FlagBits)) + 1
	var u uint64
	for j := 0; j < length && j < len(v); j++ {
		u = u<<8 | uint64(v[j])
	}
	// Sign-extend from the encoded width.
	shift := uint(64 - 8*length)
	return int64(u<<shift) >> shift
}

// DoubleValue returns the ith point interpreted as an IEEE-754 float,
// either 4 or 8 bytes wide depending on the encoded length.
func (r *RowSeq) DoubleValue(i int) float64 {
	v := r.points[i].value
	switch len(v) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(v)))
	default:
		return math.Float64frombits(binary.BigEndian.Uint64(v))
	}
}
