package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INLOpen/tsdbquery/core"
)

func testSchema() core.Schema {
	return core.Schema{MetricWidth: 3, TagNameWidth: 3, TagValueWidth: 3, FlagBits: 4}
}

func longBytes(v int64) []byte {
	return []byte{byte(v)}
}

func cell(schema core.Schema, delta uint16, value int64) core.Cell {
	return core.Cell{Qualifier: core.EncodeQualifier(schema, delta, 0), Value: longBytes(value)}
}

type fakeScanner struct {
	rows                    []*core.ScanResult
	pos                     int
	startKey, stopKey, filt []byte
	closed                  bool
}

func (s *fakeScanner) SetStartKey(key []byte) { s.startKey = key }
func (s *fakeScanner) SetStopKey(key []byte)  { s.stopKey = key }
func (s *fakeScanner) SetFilter(f []byte)     { s.filt = f }
func (s *fakeScanner) Close() error           { s.closed = true; return nil }

func (s *fakeScanner) Next(ctx context.Context) (*core.ScanResult, error) {
	if s.pos >= len(s.rows) {
		return nil, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

func TestScanGroupsRowsBySeriesIdentity(t *testing.T) {
	schema := testSchema()
	metricID := []byte{0, 0, 1}
	host1 := core.TagPair{NameID: []byte{0, 0, 1}, ValueID: []byte{0, 0, 10}}
	host2 := core.TagPair{NameID: []byte{0, 0, 1}, ValueID: []byte{0, 0, 11}}

	scanner := &fakeScanner{rows: []*core.ScanResult{
		{Key: core.EncodeRowKey(schema, metricID, 0, []core.TagPair{host1}), Cells: []core.Cell{cell(schema, 0, 1)}},
		{Key: core.EncodeRowKey(schema, metricID, 0, []core.TagPair{host2}), Cells: []core.Cell{cell(schema, 0, 2)}},
		{Key: core.EncodeRowKey(schema, metricID, 100, []core.TagPair{host1}), Cells: []core.Cell{cell(schema, 0, 3)}},
	}}

	plan := &core.Plan{MetricID: metricID, StartTime: 0, EndTime: 200}
	builders, order, err := Scan(context.Background(), plan, schema, scanner)
	require.NoError(t, err)
	require.Len(t, order, 2)

	spans := Spans(builders, order)
	require.Len(t, spans, 2)
	assert.Equal(t, 2, spans[0].Size())
	assert.Equal(t, 1, spans[1].Size())
}

func TestScanRejectsRowOutsideMetricRange(t *testing.T) {
	schema := testSchema()
	metricID := []byte{0, 0, 1}
	wrongMetric := []byte{0, 0, 2}

	scanner := &fakeScanner{rows: []*core.ScanResult{
		{Key: core.EncodeRowKey(schema, wrongMetric, 0, nil), Cells: []core.Cell{cell(schema, 0, 1)}},
	}}

	plan := &core.Plan{MetricID: metricID, StartTime: 0, EndTime: 200}
	_, _, err := Scan(context.Background(), plan, schema, scanner)
	require.Error(t, err)
	assert.True(t, core.IsScannerInvariant(err))
}

func TestScanClosesScannerOnSuccess(t *testing.T) {
	schema := testSchema()
	metricID := []byte{0, 0, 1}

	scanner := &fakeScanner{rows: []*core.ScanResult{
		{Key: core.EncodeRowKey(schema, metricID, 0, nil), Cells: []core.Cell{cell(schema, 0, 1)}},
	}}

	plan := &core.Plan{MetricID: metricID, StartTime: 0, EndTime: 200}
	_, _, err := Scan(context.Background(), plan, schema, scanner)
	require.NoError(t, err)
	assert.True(t, scanner.closed)
}

func TestScanClosesScannerOnError(t *testing.T) {
	schema := testSchema()
	metricID := []byte{0, 0, 1}
	wrongMetric := []byte{0, 0, 2}

	scanner := &fakeScanner{rows: []*core.ScanResult{
		{Key: core.EncodeRowKey(schema, wrongMetric, 0, nil), Cells: []core.Cell{cell(schema, 0, 1)}},
	}}

	plan := &core.Plan{MetricID: metricID, StartTime: 0, EndTime: 200}
	_, _, err := Scan(context.Background(), plan, schema, scanner)
	require.Error(t, err)
	assert.True(t, scanner.closed)
}

func TestScanRangeCoversStartAndEndRows(t *testing.T) {
	schema := testSchema()
	metricID := []byte{0, 0, 1}
	maxSpan := schema.MaxTimespan()

	start, stop := scanRange(schema, metricID, maxSpan+1, maxSpan*3+1)
	startBase, err := core.BaseTime(schema, start)
	require.NoError(t, err)
	stopBase, err := core.BaseTime(schema, stop)
	require.NoError(t, err)

	assert.Equal(t, 1, int(startBase), "start is start_time backed off by one row width, not rounded to a row boundary")
	assert.Equal(t, maxSpan*3+1+maxSpan, stopBase, "stop is end_time padded by one row width, not rounded to a row boundary")
}

func TestScanRangeStartSaturatesAtZero(t *testing.T) {
	schema := testSchema()
	metricID := []byte{0, 0, 1}

	start, _ := scanRange(schema, metricID, 10, 1000)
	startBase, err := core.BaseTime(schema, start)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), startBase, "start_time - MAX_TIMESPAN must saturate at 0, not underflow")
}
