// Package pathutil implements path algebra over the mixed-separator path
// strings the reconciler sees from local and WebDAV filesystems.
//
// No normalization of "." or ".." segments is performed; callers are
// expected to hand in already-clean paths, as the reconciler itself does.
package pathutil

import "strings"

// Split breaks p into its non-empty segments, treating any run of "/" or
// "\" as a separator boundary.
func Split(p string) []string {
	segments := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return segments
}

// Join rebuilds a canonical forward-slash path from segments.
func Join(segments ...string) string {
	var parts []string
	for _, s := range segments {
		parts = append(parts, Split(s)...)
	}
	return strings.Join(parts, "/")
}

// LastElement returns the final path segment, or p itself if it has none
// (e.g. an empty or root path).
func LastElement(p string) string {
	segments := Split(p)
	if len(segments) == 0 {
		return p
	}
	return segments[len(segments)-1]
}

// Equal reports whether p and q refer to the same path, segment-wise.
func Equal(p, q string) bool {
	a, b := Split(p), Split(q)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsSubpath reports whether prefix is a strict ancestor of p: prefix has
// fewer segments than p and matches p segment-wise from the root.
func IsSubpath(prefix, p string) bool {
	a, b := Split(prefix), Split(p)
	if len(a) >= len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
