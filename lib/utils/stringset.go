package utils

import (
	"sort"

	"github.com/xtgo/set"
)

/*
StringSet is a set of unique strings
*/

type StringSet map[string]struct{}

func NewStringSet() StringSet {
	return make(StringSet)
}

func NewStringSetFromSlice(slice []string) StringSet {
	s := make(StringSet)
	s.AddSlice(slice)
	return s
}

func (s StringSet) Add(v string) {
	s[v] = struct{}{}
}

func (s StringSet) Remove(v string) {
	delete(s, v)
}

// Slice returns the set contents in sorted order
func (s StringSet) Slice() (slice []string) {
	slice = make([]string, 0, len(s))
	for key := range s {
		slice = append(slice, key)
	}
	sort.Strings(slice)
	return slice
}

func (s StringSet) AddSlice(slice []string) {
	for _, el := range slice {
		s.Add(el)
	}
}

func (s StringSet) AddSet(right StringSet) {
	for el := range right {
		s.Add(el)
	}
}

func (s StringSet) Has(item string) (exists bool) {
	_, exists = s[item]
	return exists
}

// Clone returns a copy of this set
func (s StringSet) Clone() StringSet {
	clone := make(StringSet, len(s))
	clone.AddSet(s)
	return clone
}

// Equals returns true if both sets have the same members
func (s StringSet) Equals(other StringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for el := range s {
		if !other.Has(el) {
			return false
		}
	}
	return true
}

// Intersect returns the members present in both s and other, sorted
func (s StringSet) Intersect(other StringSet) []string {
	left, right := s.Slice(), other.Slice()
	data := append(left, right...)
	n := set.Inter(sort.StringSlice(data), len(left))
	return data[:n]
}
