// Package metric scores golf solutions by byte and character length.
package metric

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Metric is a scoring dimension. Only Bytes and Chars exist.
type Metric uint8

const (
	Bytes Metric = iota
	Chars
)

// All lists the metrics in index order.
var All = [2]Metric{Bytes, Chars}

// Other returns the complementary metric.
func Other(m Metric) Metric {
	if m == Chars {
		return Bytes
	}
	return Chars
}

// Score returns the length of code under m.
func Score(m Metric, code string) int {
	if m == Chars {
		return utf8.RuneCountInString(code)
	}
	return len(code)
}

// Index returns 0 for Bytes and 1 for Chars.
func (m Metric) Index() int {
	if m == Chars {
		return 1
	}
	return 0
}

func (m Metric) String() string {
	if m == Chars {
		return "Chars"
	}
	return "Bytes"
}

// ID is the lower-case form used in rankings paths.
func (m Metric) ID() string {
	return strings.ToLower(m.String())
}

// unit is the singular noun used by the stroke counter.
func (m Metric) unit() string {
	if m == Chars {
		return "char"
	}
	return "byte"
}

// Parse accepts "Bytes", "bytes", "Chars", "chars", "0" or "1".
func Parse(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bytes", "byte", "0":
		return Bytes, nil
	case "chars", "char", "1":
		return Chars, nil
	}
	return Bytes, fmt.Errorf("unknown metric %q", s)
}

func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Metric) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Strokes formats the stroke counter, e.g. "1,024 bytes, 1 char".
func Strokes(code string, metrics []Metric) string {
	parts := make([]string, 0, len(metrics))
	for _, m := range metrics {
		n := Score(m, code)
		unit := m.unit()
		if n != 1 {
			unit += "s"
		}
		parts = append(parts, humanize.Comma(int64(n))+" "+unit)
	}
	return strings.Join(parts, ", ")
}

// Pair holds one value per metric.
type Pair[T any] [2]T

// Get returns the value for m.
func (p Pair[T]) Get(m Metric) T { return p[m.Index()] }

// Set stores v for m.
func (p *Pair[T]) Set(m Metric, v T) { p[m.Index()] = v }
