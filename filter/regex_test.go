package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INLOpen/tsdbquery/core"
)

func testSchema() core.Schema {
	return core.Schema{MetricWidth: 3, TagNameWidth: 3, TagValueWidth: 3, FlagBits: 4}
}

func TestBuildMatchesLiteralTag(t *testing.T) {
	schema := testSchema()
	dc := core.TagPair{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 20}}

	pattern, err := Build(schema, []core.TagPair{dc}, nil, nil)
	require.NoError(t, err)

	matching := core.EncodeRowKey(schema, []byte{0, 0, 1}, 100, []core.TagPair{dc})
	ok, err := Matches(pattern, matching)
	require.NoError(t, err)
	assert.True(t, ok)

	other := core.TagPair{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 21}}
	mismatched := core.EncodeRowKey(schema, []byte{0, 0, 1}, 100, []core.TagPair{other})
	ok, err = Matches(pattern, mismatched)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildAllowsExtraUnrelatedTags(t *testing.T) {
	schema := testSchema()
	host := core.TagPair{NameID: []byte{0, 0, 1}, ValueID: []byte{0, 0, 10}}
	dc := core.TagPair{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 20}}
	extra := core.TagPair{NameID: []byte{0, 0, 5}, ValueID: []byte{0, 0, 99}}

	pattern, err := Build(schema, []core.TagPair{dc}, nil, nil)
	require.NoError(t, err)

	key := core.EncodeRowKey(schema, []byte{0, 0, 1}, 100, []core.TagPair{host, dc, extra})
	ok, err := Matches(pattern, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildGroupByWhitelist(t *testing.T) {
	schema := testSchema()
	hostName := []byte{0, 0, 1}
	whitelist := map[string][][]byte{string(hostName): {{0, 0, 10}, {0, 0, 11}}}

	pattern, err := Build(schema, nil, [][]byte{hostName}, whitelist)
	require.NoError(t, err)

	allowed := core.EncodeRowKey(schema, []byte{0, 0, 1}, 100, []core.TagPair{{NameID: hostName, ValueID: []byte{0, 0, 11}}})
	ok, err := Matches(pattern, allowed)
	require.NoError(t, err)
	assert.True(t, ok)

	disallowed := core.EncodeRowKey(schema, []byte{0, 0, 1}, 100, []core.TagPair{{NameID: hostName, ValueID: []byte{0, 0, 12}}})
	ok, err = Matches(pattern, disallowed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildGroupByWildcardMatchesAnyValue(t *testing.T) {
	schema := testSchema()
	hostName := []byte{0, 0, 1}

	pattern, err := Build(schema, nil, [][]byte{hostName}, map[string][][]byte{string(hostName): nil})
	require.NoError(t, err)

	key := core.EncodeRowKey(schema, []byte{0, 0, 1}, 100, []core.TagPair{{NameID: hostName, ValueID: []byte{0, 0, 77}}})
	ok, err := Matches(pattern, key)
	require.NoError(t, err)
	assert.True(t, ok)
}
