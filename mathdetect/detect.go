// Package mathdetect decides whether content carries math delimiters.
//
// It is a gate only: a miss costs an optimisation (the engine is not
// loaded up front), never correctness, because later DOM content still
// reaches the mutation filter.
package mathdetect

import (
	"regexp"

	"github.com/tidwall/gjson"
)

// mathPattern matches balanced $$...$$, \[...\] and \(...\) pairs.
var mathPattern = regexp.MustCompile(`(?s)\$\$.+?\$\$|\\\[.+?\\\]|\\\(.+?\\\)`)

// delimiterPattern is the cheap pre-check run on mutation targets. It only
// needs an opening delimiter.
var delimiterPattern = regexp.MustCompile(`(?:\$|\\\(|\\\[|\\begin\{.*?})`)

// ContainsMath reports whether v holds math. Strings are matched against
// the delimiter pairs; slices and maps are searched recursively. Any other
// value is false.
func ContainsMath(v any) bool {
	switch t := v.(type) {
	case string:
		return mathPattern.MatchString(t)
	case []string:
		for _, s := range t {
			if mathPattern.MatchString(s) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if ContainsMath(e) {
				return true
			}
		}
	case map[string]any:
		for _, e := range t {
			if ContainsMath(e) {
				return true
			}
		}
	case map[any]any:
		for _, e := range t {
			if ContainsMath(e) {
				return true
			}
		}
	case map[string]string:
		for _, e := range t {
			if mathPattern.MatchString(e) {
				return true
			}
		}
	}
	return false
}

// ContainsMathJSON is ContainsMath over a raw JSON document. Invalid JSON
// holds no math.
func ContainsMathJSON(data []byte) bool {
	if !gjson.ValidBytes(data) {
		return false
	}
	return containsResult(gjson.ParseBytes(data))
}

func containsResult(r gjson.Result) bool {
	switch {
	case r.Type == gjson.String:
		return mathPattern.MatchString(r.Str)
	case r.IsArray(), r.IsObject():
		found := false
		r.ForEach(func(_, value gjson.Result) bool {
			found = containsResult(value)
			return !found
		})
		return found
	}
	return false
}

// ContainsDelimiter reports whether text holds anything that could open
// a math expression.
func ContainsDelimiter(text string) bool {
	return delimiterPattern.MatchString(text)
}
