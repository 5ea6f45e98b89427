/*
Copyright 2020 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/gravitational/trace"
	. "gopkg.in/check.v1"
)

type FileutilsSuite struct{}

var _ = Suite(&FileutilsSuite{})

func (s *FileutilsSuite) TestWritesAtomically(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "node.json")
	c.Assert(WritePath(path, []byte("old"), 0644), IsNil)
	c.Assert(WritePathAtomic(path, []byte(`{"name":"h1"}`), 0600), IsNil)

	data, err := ReadPath(path)
	c.Assert(err, IsNil)
	c.Assert(string(data), Equals, `{"name":"h1"}`)

	fi, err := os.Stat(path)
	c.Assert(err, IsNil)
	c.Assert(fi.Mode().Perm(), Equals, os.FileMode(0600))

	entries, err := ioutil.ReadDir(dir)
	c.Assert(err, IsNil)
	c.Assert(entries, HasLen, 1, Commentf("temporary file left behind"))
}

func (s *FileutilsSuite) TestConvertsSystemErrors(c *C) {
	dir := c.MkDir()
	_, err := ReadPath(filepath.Join(dir, "missing"))
	c.Assert(trace.IsNotFound(err), Equals, true)

	_, err = IsDirectory(filepath.Join(dir, "missing"))
	c.Assert(trace.IsNotFound(err), Equals, true)

	nested := filepath.Join(dir, "a", "b")
	c.Assert(MkdirAll(nested, 0755), IsNil)
	isDir, err := IsDirectory(nested)
	c.Assert(err, IsNil)
	c.Assert(isDir, Equals, true)
}
