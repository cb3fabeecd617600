package domain

import (
	"sort"
	"strings"
)

// Name is a hierarchical resource identifier such as "/google.com/videos".
// The controller treats it as an atomic value; only monitor-side blocklists
// compare names by component prefix.
type Name string

// Components splits the name on "/" and drops empty components.
func (n Name) Components() []string {
	parts := strings.Split(string(n), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsPrefixOf reports whether every component of n is a leading component of other.
// The root name "/" is a prefix of every name.
func (n Name) IsPrefixOf(other Name) bool {
	prefix := n.Components()
	full := other.Components()
	if len(prefix) > len(full) {
		return false
	}
	for i := range prefix {
		if prefix[i] != full[i] {
			return false
		}
	}
	return true
}

func (n Name) String() string { return string(n) }

// NameSet is an unordered set of names.
type NameSet map[Name]struct{}

// NewNameSet builds a set from the given names.
func NewNameSet(names ...Name) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts a name.
func (s NameSet) Add(n Name) { s[n] = struct{}{} }

// Contains reports whether the exact name is in the set.
func (s NameSet) Contains(n Name) bool {
	_, ok := s[n]
	return ok
}

// Equal compares two sets by membership. A nil set equals an empty one.
func (s NameSet) Equal(other NameSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if _, ok := other[n]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s NameSet) Clone() NameSet {
	out := make(NameSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s NameSet) Sorted() []Name {
	out := make([]Name, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted members as plain strings.
func (s NameSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, n := range sorted {
		out[i] = string(n)
	}
	return out
}
