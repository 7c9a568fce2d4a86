// Package lenient turns free-form model output into structured JSON values.
//
// Decoding is a chain of strategies tried in order: strict parse, structural
// repair, aggressive repair and finally regex field extraction for
// name/description lists. When every strategy fails the caller's fallback is
// returned. Nothing in this package returns an error or panics to the caller.
package lenient

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// Strategy names the step of the chain that produced a Result.
type Strategy string

const (
	StrategyStrict     Strategy = "strict"
	StrategyRepaired   Strategy = "repaired"
	StrategyAggressive Strategy = "aggressive"
	StrategyFields     Strategy = "fields"
	StrategyFallback   Strategy = "fallback"
)

// maxCandidates bounds how many bracket spans are tried in a single input.
const maxCandidates = 8

// Result is a tagged decode outcome.
type Result struct {
	Value    any
	Strategy Strategy
}

// OK reports whether the value came from the input rather than the fallback.
func (r Result) OK() bool {
	return r.Strategy != StrategyFallback
}

var (
	fenceRe       = regexp.MustCompile("```[A-Za-z0-9_-]*")
	whitespaceRe  = regexp.MustCompile(`\s+`)
	controlRe     = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	nameFieldRe   = regexp.MustCompile(`"name"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	descFieldRe   = regexp.MustCompile(`"description"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	validEscapeCh = "\"\\/bfnrt"
)

// Normalize decodes raw into a JSON value (map[string]any, []any, string,
// float64, bool or nil). fallback is returned with StrategyFallback when the
// input cannot be decoded.
func Normalize(raw string, fallback any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Value: fallback, Strategy: StrategyFallback}
		}
	}()

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{Value: fallback, Strategy: StrategyFallback}
	}
	if v, err := parse(trimmed); err == nil {
		return Result{Value: v, Strategy: StrategyStrict}
	}

	text := stripFences(trimmed)
	for _, span := range candidateSpans(text, maxCandidates) {
		if v, err := parse(span); err == nil {
			return Result{Value: v, Strategy: StrategyStrict}
		}
		if v, err := parse(repair(span)); err == nil {
			return Result{Value: v, Strategy: StrategyRepaired}
		}
		if v, err := parse(repair(aggressive(span))); err == nil {
			return Result{Value: v, Strategy: StrategyAggressive}
		}
	}

	if items := extractNameDescription(text); len(items) > 0 {
		return Result{Value: items, Strategy: StrategyFields}
	}
	return Result{Value: fallback, Strategy: StrategyFallback}
}

// Decode normalizes raw and re-decodes the value into T. fallback is returned
// when normalization fails or the value does not fit T.
func Decode[T any](raw string, fallback T) (T, Strategy) {
	res := Normalize(raw, nil)
	if !res.OK() {
		return fallback, StrategyFallback
	}
	out, ok := Convert[T](res.Value)
	if !ok {
		return fallback, StrategyFallback
	}
	return out, res.Strategy
}

// Convert re-decodes a generic JSON value into T.
func Convert[T any](v any) (T, bool) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// List returns the array carried by v. Arrays are returned as is; for objects
// the first key in keys holding an array wins, then any array member in key
// order. nil is returned when v holds no array.
func List(v any, keys ...string) []any {
	switch typed := v.(type) {
	case []any:
		return typed
	case map[string]any:
		for _, k := range keys {
			if arr, ok := typed[k].([]any); ok {
				return arr
			}
		}
		names := make([]string, 0, len(typed))
		for k := range typed {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if arr, ok := typed[k].([]any); ok {
				return arr
			}
		}
	}
	return nil
}

func parse(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func stripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// candidateSpans returns the top-level balanced {...} or [...] spans in order.
// Brackets inside string literals are ignored. Scanning stops at the first
// opener that never closes, since everything after it is nested in it.
func candidateSpans(text string, limit int) []string {
	var spans []string
	for start := 0; start < len(text) && len(spans) < limit; start++ {
		c := text[start]
		if c != '{' && c != '[' {
			continue
		}
		end, ok := balancedEnd(text, start)
		if !ok {
			break
		}
		spans = append(spans, text[start:end+1])
		start = end
	}
	return spans
}

func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i, true
			}
			if depth < 0 {
				return 0, false
			}
		}
	}
	return 0, false
}

// repair fixes trailing commas, invalid escapes, raw newlines inside strings
// and stray control characters in a single string-aware pass.
func repair(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case c == '\\':
				if i+1 >= len(text) {
					continue
				}
				next := text[i+1]
				if strings.IndexByte(validEscapeCh, next) >= 0 {
					b.WriteByte(c)
					b.WriteByte(next)
					i++
					continue
				}
				if next == 'u' && i+5 < len(text) && isHex(text[i+2:i+6]) {
					b.WriteString(text[i : i+6])
					i += 5
					continue
				}
				// Unknown escape: keep the escaped character, drop the backslash.
			case c == '"':
				inString = false
				b.WriteByte(c)
			case c == '\n' || c == '\r' || c == '\t':
				b.WriteByte(' ')
			case c < 0x20:
			default:
				b.WriteByte(c)
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == ',':
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
			b.WriteByte(c)
		case c < 0x20 && !isSpace(c):
		case c == 0x7f:
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func aggressive(text string) string {
	collapsed := whitespaceRe.ReplaceAllString(text, " ")
	return controlRe.ReplaceAllString(collapsed, "")
}

// extractNameDescription pairs every "name" capture with the description
// capture at the same position. It is meant for truncated or badly broken
// arrays of {name, description} objects.
func extractNameDescription(text string) []any {
	names := nameFieldRe.FindAllStringSubmatch(text, -1)
	if len(names) == 0 {
		return nil
	}
	descs := descFieldRe.FindAllStringSubmatch(text, -1)
	out := make([]any, 0, len(names))
	for i, m := range names {
		name := unquote(m[1])
		if strings.TrimSpace(name) == "" {
			continue
		}
		desc := ""
		if i < len(descs) {
			desc = unquote(descs[i][1])
		}
		out = append(out, map[string]any{"name": name, "description": desc})
	}
	return out
}

func unquote(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}
	return s
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
