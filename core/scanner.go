package core

import "context"

// Cell is one column of a scanned row: a 2-byte qualifier (delta and
// flags packed per schema.FlagBits) and its value bytes.
type Cell struct {
	Qualifier []byte
	Value     []byte
}

// ScanResult is one row returned by a Scanner: its key and cells, with
// cells sorted by qualifier ascending (spec.md §6).
type ScanResult struct {
	Key   []byte
	Cells []Cell
}

// Scanner is the store-side contract a scan executor drives: open a
// range scan with a start/stop key and a server-side regex row filter,
// then pull rows one at a time until exhausted. Implementations live
// outside this module; the store is an external collaborator
// (spec.md §1).
type Scanner interface {
	// SetStartKey and SetStopKey bound the scan to [start, stop).
	SetStartKey(key []byte)
	SetStopKey(key []byte)
	// SetFilter installs a server-side row-key filter; filter may be
	// nil to scan every row in range.
	SetFilter(filter []byte)
	// Next returns the next row, or (nil, nil) when the scan is
	// exhausted. A non-nil error is always fatal to the scan.
	Next(ctx context.Context) (*ScanResult, error)
	Close() error
}
