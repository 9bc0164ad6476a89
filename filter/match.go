package filter

import (
	"regexp"

	"golang.org/x/text/encoding/charmap"
)

// Matches reports whether rowKey satisfies a pattern produced by
// Build, without a real Scanner to evaluate it server-side. It exists
// for tests: production scans hand filterBytes to Scanner.SetFilter
// and let the store evaluate it.
func Matches(filterBytes, rowKey []byte) (bool, error) {
	dec := charmap.ISO8859_1.NewDecoder()
	pattern, err := dec.String(string(filterBytes))
	if err != nil {
		return false, err
	}
	key, err := dec.String(string(rowKey))
	if err != nil {
		return false, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(key), nil
}
