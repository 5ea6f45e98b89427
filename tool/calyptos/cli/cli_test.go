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

package cli

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/storage"

	"github.com/gravitational/trace"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/check.v1"
)

func TestCLI(t *testing.T) { check.TestingT(t) }

type CLISuite struct{}

var _ = check.Suite(&CLISuite{})

const topology = `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: 10.0.0.1
      user-facing: [10.0.0.2]
      walrus: 10.0.0.2
      clusters:
        one:
          cc-1: 10.0.1.1
          sc-1: 10.0.1.1
          nodes: 10.0.1.2 10.0.1.3
`

func (s *CLISuite) TestParsesCommands(c *check.C) {
	g := RegisterCommands(kingpin.New("calyptos", ""))
	cmd, err := g.Parse([]string{"--debug", "-e", "env.yml", "--parallel", "4", "validate", "topology", "vpc"})
	c.Assert(err, check.IsNil)
	c.Assert(cmd, check.Equals, g.ValidateCmd.FullCommand())
	c.Assert(*g.Debug, check.Equals, true)
	c.Assert(*g.Environment, check.Equals, "env.yml")
	c.Assert(*g.Parallel, check.Equals, 4)
	c.Assert(*g.ValidateCmd.Checks, check.DeepEquals, []string{"topology", "vpc"})

	_, err = g.Parse([]string{"debug", "topology"})
	c.Assert(err, check.NotNil)
}

func (s *CLISuite) TestPrintsRoles(c *check.C) {
	path := filepath.Join(c.MkDir(), "environment.yml")
	c.Assert(ioutil.WriteFile(path, []byte(topology), 0644), check.IsNil)

	var out bytes.Buffer
	c.Assert(printRoles(&out, path), check.IsNil)
	c.Assert(out.String(), check.Matches, `(?s)Environment: test\n.*\| clc +\| 10\.0\.0\.1 +\|.*`)
	c.Assert(out.String(), check.Matches, `(?s).*\| node-controller +\| 10\.0\.1\.2, 10\.0\.1\.3 +\|.*`)
	c.Assert(out.String(), check.Matches, `(?s).*\| cluster one +\| 10\.0\.1\.1, 10\.0\.1\.2, 10\.0\.1\.3 +\|.*`)
}

func (s *CLISuite) TestPrintsHistory(c *check.C) {
	created := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	writeHistory(&out, []storage.Operation{
		{
			ID:          "op-2",
			Phase:       "bootstrap",
			Environment: "test",
			State:       storage.OperationStateFailed,
			Created:     created.Add(time.Hour),
			Updated:     created.Add(time.Hour + 90*time.Second),
			Steps: []storage.OperationStep{
				{Name: "clc", Hosts: []string{"10.0.0.1"}, Failed: map[string]string{"10.0.0.1": "exit status 1"}},
			},
		},
		{
			ID:          "op-1",
			Phase:       "prepare",
			Environment: "test",
			State:       storage.OperationStateSucceeded,
			Created:     created,
			Updated:     created.Add(time.Minute),
		},
	}, 1)
	c.Assert(out.String(), check.Matches, `(?s).*\| op-2 +\| bootstrap +\| test +\| FAILED +\| 2020-03-01T13:00:00Z +\| 1m30s +\| 10\.0\.0\.1 +\|.*`)
	c.Assert(out.String(), check.Not(check.Matches), `(?s).*op-1.*`)

	out.Reset()
	writeHistory(&out, nil, 0)
	c.Assert(out.String(), check.Equals, "No operations have been recorded.\n")
}

func (s *CLISuite) TestPrintsVersion(c *check.C) {
	var out bytes.Buffer
	c.Assert(printVersion(&out, constants.EncodingText), check.IsNil)
	c.Assert(strings.HasPrefix(out.String(), "Version:\t"), check.Equals, true)

	out.Reset()
	c.Assert(printVersion(&out, constants.EncodingJSON), check.IsNil)
	var decoded map[string]interface{}
	c.Assert(json.Unmarshal(out.Bytes(), &decoded), check.IsNil)

	c.Assert(trace.IsBadParameter(printVersion(&out, "xml")), check.Equals, true)
}

func (s *CLISuite) TestPrintsHistoryOfFreshStateDir(c *check.C) {
	var out bytes.Buffer
	c.Assert(printHistory(&out, c.MkDir(), 0), check.IsNil)
	c.Assert(out.String(), check.Equals, "No operations have been recorded.\n")
}
