package core

import (
	"errors"
	"fmt"
)

// InvalidTimestampError is returned when a query timestamp falls outside [1, 2^32).
type InvalidTimestampError struct {
	Timestamp int64
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp: %d is not in [1, 2^32)", e.Timestamp)
}

// TimeRangeInvalidError is returned when start_time >= end_time.
type TimeRangeInvalidError struct {
	StartTime, EndTime uint32
}

func (e *TimeRangeInvalidError) Error() string {
	return fmt.Sprintf("invalid time range: start_time (%d) is not before end_time (%d)", e.StartTime, e.EndTime)
}

// NoSuchNameError is returned when the intern service has no id for a name.
type NoSuchNameError struct {
	Kind string // "metric", "tag_name", "tag_value"
	Name string
}

func (e *NoSuchNameError) Error() string {
	return fmt.Sprintf("no such %s: %q", e.Kind, e.Name)
}

// NoSuchIDError is returned when the intern service has no name for an id.
type NoSuchIDError struct {
	Kind string
	ID   []byte
}

func (e *NoSuchIDError) Error() string {
	return fmt.Sprintf("no such %s id: %x", e.Kind, e.ID)
}

// SeriesMismatchError is returned when a row added to a Span does not
// match the Span's series identity (metric_id + tag bytes).
type SeriesMismatchError struct {
	Reason      string
	SpanRow     []byte
	IncomingRow []byte
}

func (e *SeriesMismatchError) Error() string {
	return fmt.Sprintf("series mismatch (%s): span row=%x, incoming row=%x", e.Reason, e.SpanRow, e.IncomingRow)
}

// OutOfOrderRowError is returned when a row's first timestamp is not
// strictly after the Span's last timestamp and the row cannot be merged.
type OutOfOrderRowError struct {
	LastTimestamp uint32
	NewTimestamp0 uint32
}

func (e *OutOfOrderRowError) Error() string {
	return fmt.Sprintf("row added out of order: span's last timestamp=%d, new row's first timestamp=%d",
		e.LastTimestamp, e.NewTimestamp0)
}

// ScannerInvariantError signals that the store returned a row outside
// the requested metric range. This is an assertion-class failure
// indicating store misbehavior, not a query-level error.
type ScannerInvariantError struct {
	WantMetricID []byte
	GotRow       []byte
}

func (e *ScannerInvariantError) Error() string {
	return fmt.Sprintf("scanner invariant violated: row %x does not start with metric id %x", e.GotRow, e.WantMetricID)
}

// StorageError wraps an I/O failure from the store. It is always fatal
// to the query that triggered it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MalformedKeyError is returned when a row key's length does not match
// the schema metric_id‖base_time‖(tag_name_id‖tag_value_id)* layout.
type MalformedKeyError struct {
	Key    []byte
	Reason string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed row key %x: %s", e.Key, e.Reason)
}

// TagConflictError is returned when a query names the same tag twice,
// or a planner ends up with a tag name_id in both the literal and
// group-by sets.
type TagConflictError struct {
	Name string
}

func (e *TagConflictError) Error() string {
	return fmt.Sprintf("tag %q specified more than once", e.Name)
}

// ExhaustedError is returned when an iterator is advanced past its end.
type ExhaustedError struct {
	What string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s exhausted: no more elements", e.What)
}

func is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func IsInvalidTimestamp(err error) bool { return is[*InvalidTimestampError](err) }
func IsTimeRangeInvalid(err error) bool { return is[*TimeRangeInvalidError](err) }
func IsNoSuchName(err error) bool       { return is[*NoSuchNameError](err) }
func IsNoSuchID(err error) bool         { return is[*NoSuchIDError](err) }
func IsSeriesMismatch(err error) bool   { return is[*SeriesMismatchError](err) }
func IsOutOfOrderRow(err error) bool    { return is[*OutOfOrderRowError](err) }
func IsScannerInvariant(err error) bool { return is[*ScannerInvariantError](err) }
func IsStorageError(err error) bool     { return is[*StorageError](err) }
func IsMalformedKey(err error) bool     { return is[*MalformedKeyError](err) }
func IsExhausted(err error) bool        { return is[*ExhaustedError](err) }
func IsTagConflict(err error) bool      { return is[*TagConflictError](err) }
