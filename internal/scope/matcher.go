// Package scope decides whether a workspace-relative path lies within an
// intent's owned glob set.
//
// Glob semantics: `**` matches zero or more path segments, `*` matches
// within a single segment, `?` matches exactly one character, and
// matching is case-sensitive. A path is in scope iff it matches at least
// one glob. Matching is done by doublestar, which also gives `[...]`
// character classes, `{a,b}` alternatives and `\` escapes their special
// meaning, so those characters are not matched literally.
package scope

import "github.com/bmatcuk/doublestar/v4"

// InScope reports whether path matches at least one glob in the set.
// An empty glob set puts no path in scope. Paths and globs are
// forward-slash, workspace-relative; normalization happens upstream.
func InScope(path string, globs []string) bool {
	for _, g := range globs {
		if Match(g, path) {
			return true
		}
	}
	return false
}

// Match reports whether a single glob matches the path. A malformed
// glob matches nothing — a bad pattern must never widen an intent's
// scope.
func Match(glob, path string) bool {
	ok, err := doublestar.Match(glob, path)
	return err == nil && ok
}
