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

package schema

import (
	"encoding/json"
	"testing"

	"github.com/eucalyptus/calyptos/lib/compare"

	. "gopkg.in/check.v1"
)

func TestSchema(t *testing.T) { TestingT(t) }

type ParseSuite struct{}

var _ = Suite(&ParseSuite{})

const environment = `name: production
description: test cloud
cookbook_versions: {}
default_attributes:
  eucalyptus:
    eucalyptus-repo: http://downloads.example.com/eucalyptus/4.1/centos/6/x86_64/
    euca2ools-repo: http://downloads.example.com/euca2ools/3.2/centos/6/x86_64/
    topology:
      clc-1: 10.0.0.1
      user-facing:
      - 10.0.0.2
      walrus: 10.0.0.2
      clusters:
        one:
          cc-1: 10.0.0.3
          sc-1: 10.0.0.4
          nodes: 10.0.0.5 10.0.0.6
        two:
          cc-1: 10.0.0.7
          sc-1: 10.0.0.7
          nodes:
          - 10.0.0.8
    network:
      mode: VPCMIDO
      config-json:
        Mido:
          EucanetdHost: gw-1
          Gateways:
          - GatewayHost: gw-1
            GatewayIP: 10.0.1.1
            GatewayInterface: em1
  midokura:
    zookeepers:
    - 10.0.0.1:2181
    midolman-host-mapping:
      gw-1: 10.0.0.9
`

func (s *ParseSuite) TestParseEnvironment(c *C) {
	descriptor, err := ParseEnvironmentYAML([]byte(environment))
	c.Assert(err, IsNil)
	c.Assert(descriptor.Name, Equals, "production")

	euca := descriptor.DefaultAttributes.Eucalyptus
	c.Assert(euca, NotNil)
	compare.DeepCompare(c, euca.Topology.Clusters, map[string]Cluster{
		"one": {CC: "10.0.0.3", SC: "10.0.0.4", Nodes: NodeList{"10.0.0.5", "10.0.0.6"}},
		"two": {CC: "10.0.0.7", SC: "10.0.0.7", Nodes: NodeList{"10.0.0.8"}},
	})
	c.Assert(euca.Topology.ClusterNames(), DeepEquals, []string{"one", "two"})
	c.Assert(descriptor.OverlayEnabled(), Equals, true)
	c.Assert(descriptor.ObjectClusterConfigured(), Equals, false)
	c.Assert(euca.Network.Config.Mido.APIHostname(), Equals, "gw-1")
	c.Assert(descriptor.DefaultAttributes.Midokura.HostMapping, DeepEquals,
		map[string]string{"gw-1": "10.0.0.9"})
	compare.DeepCompare(c, descriptor.RepoURLs(), map[string]string{
		"eucalyptus-repo": "http://downloads.example.com/eucalyptus/4.1/centos/6/x86_64/",
		"euca2ools-repo":  "http://downloads.example.com/euca2ools/3.2/centos/6/x86_64/",
	})
}

func (s *ParseSuite) TestEnvironmentJSONKeepsUnknownKeys(c *C) {
	descriptor, err := ParseEnvironmentYAML([]byte(environment))
	c.Assert(err, IsNil)

	data, err := descriptor.EnvironmentJSON()
	c.Assert(err, IsNil)

	var doc map[string]interface{}
	c.Assert(json.Unmarshal(data, &doc), IsNil)
	c.Assert(doc["cookbook_versions"], DeepEquals, map[string]interface{}{})
	c.Assert(doc["description"], Equals, "test cloud")
}

func (s *ParseSuite) TestRejectsMalformedEnvironment(c *C) {
	var testCases = []struct {
		input   string
		path    string
		comment string
	}{
		{
			input:   "name: test\n",
			path:    "",
			comment: "missing default attributes",
		},
		{
			input: `name: test
default_attributes:
  eucalyptus:
    topology:
      user-facing: 10.0.0.2
`,
			path:    "eucalyptus.topology.user-facing",
			comment: "user facing hosts must be a list",
		},
		{
			input: `name: test
default_attributes:
  ceph:
    topology:
      mons:
      - hostname: mon-1
`,
			path:    "ceph.topology.mons.0",
			comment: "monitor without an address",
		},
		{
			input:   "name: test; reboot\ndefault_attributes: {}\n",
			path:    "name",
			comment: "environment name outside the allowed character set",
		},
		{
			input:   "name: [\n",
			path:    "",
			comment: "not a YAML document",
		},
	}
	for _, tc := range testCases {
		comment := Commentf(tc.comment)
		_, err := ParseEnvironmentYAML([]byte(tc.input))
		c.Assert(err, NotNil, comment)
		c.Assert(IsInvalidTopology(err), Equals, true, comment)
		c.Assert(InvalidTopologyPath(err), Equals, tc.path, comment)
	}
}

func (s *ParseSuite) TestNodeListForms(c *C) {
	var nodes NodeList
	c.Assert(json.Unmarshal([]byte(`"10.0.0.1  10.0.0.2\n10.0.0.3"`), &nodes), IsNil)
	c.Assert(nodes, DeepEquals, NodeList{"10.0.0.1", "10.0.0.2", "10.0.0.3"})

	c.Assert(json.Unmarshal([]byte(`["10.0.0.4"]`), &nodes), IsNil)
	c.Assert(nodes, DeepEquals, NodeList{"10.0.0.4"})

	c.Assert(json.Unmarshal([]byte(`42`), &nodes), NotNil)
}
