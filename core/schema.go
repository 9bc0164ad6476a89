package core

// TimestampBytes is the width, in bytes, of the big-endian base_time
// field embedded in every row key.
const TimestampBytes = 4

// Schema captures the fixed byte widths the identifier-interning
// service hands out for the lifetime of a process, plus the number of
// flag bits packed into the low bits of a cell qualifier. It stands in
// for the intern service's metric.width() / tag_names.width() /
// tag_values.width() getters (spec §6) so the codec, filter builder and
// scan executor never need a live reference to the interner just to
// know how many bytes an id occupies.
type Schema struct {
	MetricWidth   int
	TagNameWidth  int
	TagValueWidth int
	FlagBits      uint
}

// TagPairWidth returns W = W_n + W_v, the width of one (name_id,
// value_id) pair in a row key's tag section.
func (s Schema) TagPairWidth() int {
	return s.TagNameWidth + s.TagValueWidth
}

// MetricTimestampWidth returns W_m + T, the offset at which the tag
// section of a row key begins.
func (s Schema) MetricTimestampWidth() int {
	return s.MetricWidth + TimestampBytes
}

// MaxTimespan returns 2^(16-FlagBits), the number of seconds a single
// row can span before its deltas overflow the qualifier's delta field.
func (s Schema) MaxTimespan() uint32 {
	return uint32(1) << (16 - s.FlagBits)
}
