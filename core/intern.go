package core

// Interner resolves names to and from the fixed-width ids embedded in
// row keys. It stands in for the identifier-interning service
// (spec.md §1, §6): production implementations are backed by a
// separate lookup table outside this module and are never implemented
// here.
type Interner interface {
	MetricID(name string) ([]byte, error)
	MetricName(id []byte) (string, error)

	TagNameID(name string) ([]byte, error)
	TagName(id []byte) (string, error)

	TagValueID(value string) ([]byte, error)
	TagValue(id []byte) (string, error)

	Schema() Schema
}
