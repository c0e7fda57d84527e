package domain

import "sort"

// TagSet is a set of display labels. Membership is exact string equality.
// The zero value is not usable; build one with NewTagSet.
type TagSet map[string]struct{}

// NewTagSet returns a set holding the given tags.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts tag into the set. Adding an existing tag is a no-op.
func (s TagSet) Add(tag string) {
	s[tag] = struct{}{}
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Len returns the number of tags.
func (s TagSet) Len() int {
	return len(s)
}

// Sorted returns the tags in ascending order. It never returns nil.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
