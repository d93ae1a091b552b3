package domain

import "strings"

// Document is a decoded document as returned by the store driver.
// Nested objects decode to map[string]any, arrays to []any.
type Document = map[string]any

// ExtractValues returns every terminal value reachable from doc at the
// given dot-notation path. Crossing an array fans out into every element,
// so a document {addresses: [{zip: "A"}, {zip: "B"}]} yields both "A" and
// "B" for the path "addresses.zip". A terminal array also enumerates its
// elements. Returns nil when the path does not resolve.
func ExtractValues(doc Document, path string) []any {
	if doc == nil || path == "" {
		return nil
	}
	return extract(doc, strings.Split(path, "."))
}

// HasPath reports whether at least one value is reachable at path.
func HasPath(doc Document, path string) bool {
	return len(ExtractValues(doc, path)) > 0
}

func extract(v any, segments []string) []any {
	if len(segments) == 0 {
		return terminals(v)
	}
	switch cur := v.(type) {
	case map[string]any:
		next, ok := cur[segments[0]]
		if !ok {
			return nil
		}
		return extract(next, segments[1:])
	case []any:
		// Arrays are transparent to path traversal: the same remaining
		// segments apply to every element.
		var out []any
		for _, elem := range cur {
			out = append(out, extract(elem, segments)...)
		}
		return out
	default:
		return nil
	}
}

// terminals flattens the value at the end of a path into scalar leaves:
// arrays enumerate every element, objects descend into every field.
func terminals(v any) []any {
	switch cur := v.(type) {
	case nil:
		return nil
	case []any:
		var out []any
		for _, elem := range cur {
			out = append(out, terminals(elem)...)
		}
		return out
	case map[string]any:
		var out []any
		for _, elem := range cur {
			out = append(out, terminals(elem)...)
		}
		return out
	default:
		return []any{cur}
	}
}
