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

package config

import (
	"testing"

	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/roles"

	"github.com/gravitational/trace"
	. "gopkg.in/check.v1"
	"gopkg.in/yaml.v2"
)

func TestConfig(t *testing.T) { TestingT(t) }

type ConfigSuite struct{}

var _ = Suite(&ConfigSuite{})

const configYAML = `deployer:
  chef:
    roles:
    - node-controller: ['eucalyptus::node-controller']
    - clc: ['eucalyptus::cloud-controller', 'eucalyptus::user-console']
    - riak-head: ['riakcs-cluster::head']
`

func (s *ConfigSuite) TestParse(c *C) {
	config, err := ParseYAML([]byte(configYAML))
	c.Assert(err, IsNil)
	chef := config.Deployer.Chef

	var order []roles.Role
	for _, entry := range chef.Roles {
		order = append(order, entry.Role)
	}
	c.Assert(order, DeepEquals, []roles.Role{roles.NodeController, roles.CLC, roles.RiakHead})

	recipes, err := chef.Recipes(roles.CLC)
	c.Assert(err, IsNil)
	c.Assert(recipes, DeepEquals, []string{"eucalyptus::cloud-controller", "eucalyptus::user-console"})

	_, err = chef.Recipes(roles.Walrus)
	c.Assert(trace.IsNotFound(err), Equals, true)

	c.Assert(chef.CookbookRepo, Equals, defaults.CookbookRepo)
	c.Assert(chef.Branch, Equals, defaults.CookbookBranch)
	c.Assert(*chef.UpdateRepo, Equals, true)
}

func (s *ConfigSuite) TestRoundTrip(c *C) {
	config, err := ParseYAML([]byte(configYAML))
	c.Assert(err, IsNil)
	data, err := yaml.Marshal(config)
	c.Assert(err, IsNil)
	again, err := ParseYAML(data)
	c.Assert(err, IsNil)
	c.Assert(again, DeepEquals, config)
}

func (s *ConfigSuite) TestRejectsInvalidConfig(c *C) {
	var testCases = []struct {
		input   string
		comment string
	}{
		{input: "other: {}\n", comment: "missing deployer section"},
		{input: "deployer: {}\n", comment: "missing chef section"},
		{input: "deployer:\n  chef:\n    roles:\n    - bogus: [a]\n", comment: "unknown role"},
		{input: "deployer:\n  chef:\n    roles:\n    - all: [a]\n", comment: "all is not a recipe role"},
		{input: "deployer:\n  chef:\n    roles:\n    - clc: [a]\n    - clc: [b]\n", comment: "duplicate role"},
		{input: "deployer:\n  chef:\n    roles:\n    - {clc: [a], walrus: [b]}\n", comment: "two roles in one entry"},
	}
	for _, tc := range testCases {
		_, err := ParseYAML([]byte(tc.input))
		c.Assert(err, NotNil, Commentf(tc.comment))
	}
}
