// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ExclusionMatcher decides which project entries are left out of the build
// directory. Patterns are regular expressions matched (unanchored) against
// the entry's path relative to the copy root, using forward slashes.
type ExclusionMatcher struct {
	patterns []*regexp.Regexp
}

// NewExclusionMatcher compiles patterns in order. An empty list yields a
// matcher that excludes nothing.
func NewExclusionMatcher(patterns []string) (*ExclusionMatcher, error) {
	m := &ExclusionMatcher{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &InvalidExcludePatternError{Pattern: p, Err: err}
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Empty reports whether the matcher has no patterns.
func (m *ExclusionMatcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// Excluded reports whether candidate, a path under root, is excluded. It
// returns the relative path that was tested and the first matching pattern.
func (m *ExclusionMatcher) Excluded(root, candidate string) (rel, pattern string, excluded bool) {
	if m.Empty() {
		return "", "", false
	}
	rel = relativeTo(root, candidate)
	pattern, excluded = m.Match(rel)
	return rel, pattern, excluded
}

// Match tests rel against every pattern; the first match wins.
func (m *ExclusionMatcher) Match(rel string) (pattern string, excluded bool) {
	if m.Empty() {
		return "", false
	}
	for _, re := range m.patterns {
		if re.MatchString(rel) {
			return re.String(), true
		}
	}
	return "", false
}

// relativeTo strips the root prefix and a single leading separator from
// candidate, returning a forward-slash path.
func relativeTo(root, candidate string) string {
	rel := strings.TrimPrefix(filepath.Clean(candidate), filepath.Clean(root))
	rel = filepath.ToSlash(rel)
	return strings.TrimPrefix(rel, "/")
}
