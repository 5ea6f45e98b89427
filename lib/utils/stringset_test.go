package utils

import "gopkg.in/check.v1"

type StringSetSuite struct{}

var _ = check.Suite(&StringSetSuite{})

func (s *StringSetSuite) TestEverything(c *check.C) {
	set := NewStringSet()

	set.Add("one")
	set.Add("two")
	set.Add("two")
	c.Assert(set, check.HasLen, 2)

	set.Remove("two")
	c.Assert(set, check.HasLen, 1)

	another := NewStringSet()
	another.Add("1")
	another.Add("2")
	another.Add("3")

	set.AddSet(another)
	c.Assert(set.Slice(), check.DeepEquals, []string{"1", "2", "3", "one"})

	set.AddSlice([]string{"bad", "santa"})
	c.Assert(set.Slice(), check.DeepEquals, []string{"1", "2", "3", "bad", "one", "santa"})
}

func (s *StringSetSuite) TestIntersect(c *check.C) {
	left := NewStringSetFromSlice([]string{"10.0.0.3", "10.0.0.4", "10.0.0.5"})
	right := NewStringSetFromSlice([]string{"10.0.0.5", "10.0.0.6", "10.0.0.3"})
	c.Assert(left.Intersect(right), check.DeepEquals, []string{"10.0.0.3", "10.0.0.5"})
	c.Assert(left.Intersect(NewStringSet()), check.HasLen, 0)
	// a host name that is a substring of another must not match
	c.Assert(NewStringSetFromSlice([]string{"10.0.0.1"}).Intersect(
		NewStringSetFromSlice([]string{"10.0.0.10"})), check.HasLen, 0)
}

func (s *StringSetSuite) TestCloneAndEquals(c *check.C) {
	set := NewStringSetFromSlice([]string{"a", "b"})
	clone := set.Clone()
	c.Assert(clone.Equals(set), check.Equals, true)
	clone.Add("c")
	c.Assert(clone.Equals(set), check.Equals, false)
	c.Assert(set, check.HasLen, 2)
}
