package rules

import (
	"strings"
)

// Separator is the canonical separator for relative paths and rules
const Separator = "/"

// Normalize converts separators to the canonical one and strips leading and
// trailing separators
func Normalize(p string) string {
	return strings.Trim(strings.ReplaceAll(p, "\\", Separator), Separator)
}

// IsExcluded reports whether relPath is excluded by any of the rules
func IsExcluded(relPath string, rules []string) bool {
	rel := Normalize(relPath)
	if rel == "" {
		return false
	}

	for _, raw := range rules {
		rule := Normalize(raw)
		if rule == "" {
			continue
		}
		if matches(rel, rule) {
			return true
		}
	}
	return false
}

// matches applies a single normalized rule to a normalized path
func matches(rel, rule string) bool {
	if strings.Contains(rule, Separator) {
		return rel == rule || strings.HasPrefix(rel, rule+Separator)
	}
	for _, segment := range strings.Split(rel, Separator) {
		if segment == rule {
			return true
		}
	}
	return false
}

// Set is a normalized, deduplicated collection of exclusion rules
type Set struct {
	rules []string
}

// NewSet builds a Set from any number of rule lists, dropping empty and
// duplicate rules
func NewSet(lists ...[]string) *Set {
	seen := make(map[string]bool)
	s := &Set{}
	for _, list := range lists {
		for _, raw := range list {
			rule := Normalize(raw)
			if rule == "" || seen[rule] {
				continue
			}
			seen[rule] = true
			s.rules = append(s.rules, rule)
		}
	}
	return s
}

// Excludes reports whether relPath is excluded by the set
func (s *Set) Excludes(relPath string) bool {
	if s == nil {
		return false
	}
	return IsExcluded(relPath, s.rules)
}

// Rules returns a copy of the normalized rules
func (s *Set) Rules() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of distinct rules
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}
