package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInterner struct {
	schema     Schema
	metrics    map[string][]byte
	tagNames   map[string][]byte
	tagValues  map[string][]byte
}

func newFakeInterner() *fakeInterner {
	return &fakeInterner{
		schema:    testSchema(),
		metrics:   map[string][]byte{"sys.cpu.user": {0, 0, 1}},
		tagNames:  map[string][]byte{"host": {0, 0, 1}, "dc": {0, 0, 2}},
		tagValues: map[string][]byte{"web01": {0, 0, 10}, "web02": {0, 0, 11}, "lga": {0, 0, 20}},
	}
}

func (f *fakeInterner) Schema() Schema { return f.schema }

func (f *fakeInterner) MetricID(name string) ([]byte, error) {
	if id, ok := f.metrics[name]; ok {
		return id, nil
	}
	return nil, &NoSuchNameError{Kind: "metric", Name: name}
}
func (f *fakeInterner) MetricName(id []byte) (string, error) { return "", &NoSuchIDError{Kind: "metric", ID: id} }

func (f *fakeInterner) TagNameID(name string) ([]byte, error) {
	if id, ok := f.tagNames[name]; ok {
		return id, nil
	}
	return nil, &NoSuchNameError{Kind: "tag_name", Name: name}
}
func (f *fakeInterner) TagName(id []byte) (string, error) { return "", &NoSuchIDError{Kind: "tag_name", ID: id} }

func (f *fakeInterner) TagValueID(value string) ([]byte, error) {
	if id, ok := f.tagValues[value]; ok {
		return id, nil
	}
	return nil, &NoSuchNameError{Kind: "tag_value", Name: value}
}
func (f *fakeInterner) TagValue(id []byte) (string, error) { return "", &NoSuchIDError{Kind: "tag_value", ID: id} }

func TestQueryAddTagRejectsDuplicateName(t *testing.T) {
	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.AddTag("host", "web01"))
	err := q.AddTag("host", "web02")
	require.Error(t, err)
	assert.True(t, IsTagConflict(err))
}

func TestQueryPlanSplitsLiteralAndGroupByTags(t *testing.T) {
	interner := newFakeInterner()
	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.SetStartTime(1000))
	require.NoError(t, q.SetEndTime(2000))
	require.NoError(t, q.AddTag("dc", "lga"))
	require.NoError(t, q.AddTag("host", "*"))

	plan, err := q.Plan(interner)
	require.NoError(t, err)

	require.Len(t, plan.LiteralTags, 1)
	assert.Equal(t, interner.tagNames["dc"], plan.LiteralTags[0].NameID)
	assert.Equal(t, interner.tagValues["lga"], plan.LiteralTags[0].ValueID)

	require.Len(t, plan.GroupByNames, 1)
	assert.Equal(t, interner.tagNames["host"], plan.GroupByNames[0])
	assert.Nil(t, plan.GroupByWhitelist[string(interner.tagNames["host"])])
}

func TestQueryAddTagLeadingPipeIsLiteralNotWhitelist(t *testing.T) {
	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.AddTag("host", "|foo"))

	require.Len(t, q.Tags, 1)
	assert.False(t, q.Tags[0].GroupBy)
	assert.Equal(t, []string{"|foo"}, q.Tags[0].Values)
}

func TestQueryPlanGroupByWhitelist(t *testing.T) {
	interner := newFakeInterner()
	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.SetStartTime(1000))
	require.NoError(t, q.SetEndTime(2000))
	require.NoError(t, q.AddTag("host", "web01|web02"))

	plan, err := q.Plan(interner)
	require.NoError(t, err)
	require.Len(t, plan.GroupByNames, 1)
	whitelist := plan.GroupByWhitelist[string(interner.tagNames["host"])]
	require.Len(t, whitelist, 2)
	assert.Equal(t, interner.tagValues["web01"], whitelist[0])
	assert.Equal(t, interner.tagValues["web02"], whitelist[1])
}

func TestSetEndTimeRejectsInvertedRangeEagerly(t *testing.T) {
	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.SetStartTime(2000))

	err := q.SetEndTime(1000)
	require.Error(t, err)
	assert.True(t, IsTimeRangeInvalid(err))
}

func TestSetStartTimeRejectsInvertedRangeEagerly(t *testing.T) {
	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.SetEndTime(1000))

	err := q.SetStartTime(2000)
	require.Error(t, err)
	assert.True(t, IsTimeRangeInvalid(err))
}

func TestQueryPlanRejectsInvertedTimeRangeAgainstLazyEndTime(t *testing.T) {
	defer func() { Now = time.Now }()
	Now = func() time.Time { return time.Unix(500, 0) }

	interner := newFakeInterner()
	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.SetStartTime(1000))

	_, err := q.Plan(interner)
	require.Error(t, err)
	assert.True(t, IsTimeRangeInvalid(err))
}

func TestQueryEndTimeDefaultsToNowLazily(t *testing.T) {
	defer func() { Now = time.Now }()

	fixed := time.Unix(5_000_000, 0)
	Now = func() time.Time { return fixed }

	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.SetStartTime(1))
	assert.Equal(t, uint32(5_000_000), q.EndTime())

	Now = func() time.Time { return fixed.Add(time.Hour) }
	assert.Equal(t, uint32(5_000_000)+3600, q.EndTime(), "unset end_time is resolved at read time, not at query construction")
}

func TestQueryStringDoesNotPanic(t *testing.T) {
	q := NewQuery("sys.cpu.user")
	require.NoError(t, q.SetStartTime(1))
	require.NoError(t, q.AddTag("host", "*"))
	require.NoError(t, q.AddTag("dc", "lga"))
	assert.Contains(t, q.String(), "sys.cpu.user")
	assert.Contains(t, q.String(), "end_time=now")
}
