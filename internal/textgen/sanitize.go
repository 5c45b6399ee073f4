package textgen

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Clean strips markdown code fences and surrounding whitespace.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Extract returns the span between the first open and the last close
// delimiter, dropping any prose the model put around the structure.
func Extract(s string, opening, closing byte) string {
	start := strings.IndexByte(s, opening)
	end := strings.LastIndexByte(s, closing)
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

// Repair rewrites almost-JSON into parseable JSON. Typographic double quotes
// used as delimiters become ASCII quotes, ASCII quotes that do not end a
// string are escaped, and raw control characters inside strings are escaped.
// A quote ends a string only when the next non-space rune is a structural
// delimiter, so the result is a best effort and callers must still validate.
func Repair(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 16)

	var opener rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if opener == 0 {
			if isQuote(r) {
				opener = r
				b.WriteByte('"')
				continue
			}
			b.WriteRune(r)
			continue
		}

		switch {
		case r == '\\':
			b.WriteRune(r)
			if i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
			}
		case r == '"' || (opener != '"' && isQuote(r)):
			if endsString(runes, i+1) {
				opener = 0
				b.WriteByte('"')
			} else if r == '"' {
				b.WriteString(`\"`)
			} else {
				b.WriteRune(r)
			}
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isQuote(r rune) bool {
	return r == '"' || r == '“' || r == '”'
}

func endsString(runes []rune, from int) bool {
	for j := from; j < len(runes); j++ {
		switch runes[j] {
		case ' ', '\n', '\r', '\t':
			continue
		case ',', ':', '}', ']':
			return true
		default:
			return false
		}
	}
	return true
}

// Decode parses a model response into T. It strips fences, extracts the outer
// array or object (chosen by T's kind), tries a strict parse and, failing
// that, repairs quotes once and parses again. Continued failure reports
// ErrMalformed.
func Decode[T any](raw string) (T, error) {
	var out T
	opening, closing := byte('{'), byte('}')
	if k := reflect.TypeOf(out); k != nil && (k.Kind() == reflect.Slice || k.Kind() == reflect.Array) {
		opening, closing = '[', ']'
	}

	body := Extract(Clean(raw), opening, closing)
	if body == "" {
		return out, fmt.Errorf("%w: no %c...%c structure in response", ErrMalformed, opening, closing)
	}
	if err := json.Unmarshal([]byte(body), &out); err == nil {
		return out, nil
	}

	var repaired T
	if err := json.Unmarshal([]byte(Repair(body)), &repaired); err != nil {
		return repaired, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return repaired, nil
}

// Number accepts a JSON number or a numeric string, rounding fractions.
type Number int

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" || s == "null" {
		return fmt.Errorf("empty number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	*n = Number(math.Round(f))
	return nil
}
