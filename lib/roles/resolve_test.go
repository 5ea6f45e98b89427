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

package roles

import (
	"fmt"
	"testing"

	"github.com/eucalyptus/calyptos/lib/compare"
	"github.com/eucalyptus/calyptos/lib/schema"

	. "gopkg.in/check.v1"
)

func TestRoles(t *testing.T) { TestingT(t) }

type ResolveSuite struct{}

var _ = Suite(&ResolveSuite{})

const basicTopology = `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      clusters:
        one:
          cc-1: H3
          sc-1: H4
          nodes: H5 H6
`

func parse(c *C, input string) *schema.Descriptor {
	descriptor, err := schema.ParseEnvironmentYAML([]byte(input))
	c.Assert(err, IsNil)
	return descriptor
}

func (s *ResolveSuite) TestResolvesSingleCluster(c *C) {
	g, err := Resolve(parse(c, basicTopology))
	c.Assert(err, IsNil)

	c.Assert(g.AllHosts(), DeepEquals, []string{"H1", "H2", "H3", "H4", "H5", "H6"})
	c.Assert(g.Hosts(CLC), DeepEquals, []string{"H1"})
	c.Assert(g.Hosts(UserFacing), DeepEquals, []string{"H2"})
	c.Assert(g.Hosts(Walrus), DeepEquals, []string{"H2"})
	c.Assert(g.Hosts(ClusterController), DeepEquals, []string{"H3"})
	c.Assert(g.Hosts(StorageController), DeepEquals, []string{"H4"})
	c.Assert(g.Hosts(NodeController), DeepEquals, []string{"H5", "H6"})
	c.Assert(g.ClusterNames(), DeepEquals, []string{"one"})
	c.Assert(g.ClusterHosts("one"), DeepEquals, []string{"H3", "H4", "H5", "H6"})
	for _, role := range []Role{Console, MidonetAPI, Midolman, MonBootstrap, RiakHead, HAProxy} {
		c.Assert(g.Has(role), Equals, false, Commentf("role %v", role))
	}
	name, ok := g.ClusterOf("H5")
	c.Assert(ok, Equals, true)
	c.Assert(name, Equals, "one")
	_, ok = g.ClusterOf("H1")
	c.Assert(ok, Equals, false)
}

func (s *ResolveSuite) TestResolveIsDeterministic(c *C) {
	input := `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: 10.0.0.1
      user-facing: [10.0.0.2, 10.0.0.3]
      console: [10.0.0.3]
      walrus: 10.0.0.2
      clusters:
        east:
          cc-1: 10.0.1.1
          sc-1: 10.0.1.2
          nodes: [10.0.1.3, 10.0.1.4]
        west:
          cc-1: 10.0.2.1
          sc-1: 10.0.2.1
          nodes: 10.0.2.2 10.0.2.3 10.0.2.4
`
	first, err := Resolve(parse(c, input))
	c.Assert(err, IsNil)
	second, err := Resolve(parse(c, input))
	c.Assert(err, IsNil)
	for _, role := range Roles {
		c.Assert(first.HostSet(role).Equals(second.HostSet(role)), Equals, true, Commentf("role %v", role))
	}
	for _, name := range first.ClusterNames() {
		c.Assert(first.ClusterHosts(name), compare.HostsEqual, second.ClusterHosts(name))
	}
}

func (s *ResolveSuite) TestRequiresUserFacing(c *C) {
	_, err := Resolve(parse(c, `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: H1
      walrus: H1
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5}
`))
	c.Assert(schema.IsInvalidTopology(err), Equals, true, Commentf("%v", err))
	c.Assert(schema.InvalidTopologyPath(err), Equals, "eucalyptus.topology.user-facing")
}

func (s *ResolveSuite) TestRequiresController(c *C) {
	_, err := Resolve(parse(c, `name: test
default_attributes:
  eucalyptus:
    topology:
      user-facing: [H2]
      walrus: H2
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5}
`))
	c.Assert(schema.InvalidTopologyPath(err), Equals, "eucalyptus.topology.clc-1")

	_, err = Resolve(parse(c, "name: test\ndefault_attributes: {}\n"))
	c.Assert(schema.InvalidTopologyPath(err), Equals, "eucalyptus")
}

func (s *ResolveSuite) TestRejectsHostInTwoClusters(c *C) {
	_, err := Resolve(parse(c, `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5 H6}
        two: {cc-1: H7, sc-1: H8, nodes: H6 H9}
`))
	c.Assert(schema.IsInvalidTopology(err), Equals, true, Commentf("%v", err))
	c.Assert(schema.InvalidTopologyPath(err), Equals, "eucalyptus.topology.clusters.two")
	c.Assert(err.Error(), Matches, `.*\[H6\].*"one".*`)
}

func (s *ResolveSuite) TestClusterMembershipIsNotSubstringMatch(c *C) {
	g, err := Resolve(parse(c, `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: 10.0.0.1
      user-facing: [10.0.0.1]
      walrus: 10.0.0.1
      clusters:
        10.0.0.1:
          cc-1: 10.0.0.10
          sc-1: 10.0.0.11
          nodes: 10.0.0.12
        10.0.0.12:
          cc-1: 10.0.0.121
          sc-1: 10.0.0.122
          nodes: 10.0.0.123
`))
	c.Assert(err, IsNil)
	c.Assert(g.ClusterHosts("10.0.0.1"), DeepEquals, []string{"10.0.0.10", "10.0.0.11", "10.0.0.12"})
	c.Assert(g.ClusterHosts("10.0.0.12"), DeepEquals, []string{"10.0.0.121", "10.0.0.122", "10.0.0.123"})
}

func (s *ResolveSuite) TestMissingStorageControllerFailsBeforeClustersAreBuilt(c *C) {
	// cluster "a" is incomplete and cluster "b" would fail the
	// uniqueness check: the incomplete cluster must be reported
	_, err := Resolve(parse(c, `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      clusters:
        a: {cc-1: H3, nodes: H5}
        b: {cc-1: H3, sc-1: H4, nodes: H5}
        c: {cc-1: H7, sc-1: H8, nodes: H9}
`))
	c.Assert(schema.IsInvalidTopology(err), Equals, true)
	c.Assert(schema.InvalidTopologyPath(err), Equals, "eucalyptus.topology.clusters.a.sc-1")

	_, err = Resolve(parse(c, `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      clusters:
        a: {cc-1: H3, sc-1: H4, nodes: H5}
        z: {sc-1: H8, nodes: H9}
`))
	c.Assert(schema.InvalidTopologyPath(err), Equals, "eucalyptus.topology.clusters.z.cc-1")
}

func (s *ResolveSuite) TestObjectStoreStrategies(c *C) {
	var testCases = []struct {
		input   string
		path    string
		comment string
	}{
		{
			input: `name: test
default_attributes:
  riakcs_cluster:
    topology:
      head: {ipaddr: H7}
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5}
`,
			path:    "eucalyptus.topology.walrus",
			comment: "walrus and object store cluster",
		},
		{
			input: `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      riakcs: {endpoint: objects.example.com}
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5}
`,
			path:    "eucalyptus.topology.walrus",
			comment: "walrus and external object store",
		},
		{
			input: `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5}
`,
			path:    "eucalyptus.topology",
			comment: "no object store",
		},
	}
	for _, tc := range testCases {
		comment := Commentf(tc.comment)
		_, err := Resolve(parse(c, tc.input))
		c.Assert(schema.IsInvalidTopology(err), Equals, true, comment)
		c.Assert(schema.InvalidTopologyPath(err), Equals, tc.path, comment)
	}
}

const riakTopology = `name: test
default_attributes:
  %s
  riakcs_cluster:
    topology:
      %s
      nodes: [R2, R3]
      load_balancer: LB
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5}
`

func (s *ResolveSuite) TestObjectCluster(c *C) {
	g, err := Resolve(parse(c, fmt.Sprintf(riakTopology, "haproxy: {}", "head: {ipaddr: R1}")))
	c.Assert(err, IsNil)
	c.Assert(g.Hosts(RiakHead), DeepEquals, []string{"R1"})
	c.Assert(g.Hosts(RiakNode), DeepEquals, []string{"R2", "R3"})
	c.Assert(g.Hosts(HAProxy), DeepEquals, []string{"LB"})
	c.Assert(g.HasHost(All, "LB"), Equals, true)
	c.Assert(g.Has(Walrus), Equals, false)

	_, err = Resolve(parse(c, fmt.Sprintf(riakTopology, "haproxy: {}", "head:")))
	c.Assert(IsMissingHeadNode(err), Equals, true, Commentf("%v", err))

	_, err = Resolve(parse(c, fmt.Sprintf(riakTopology, "nginx: {}", "head: {ipaddr: R1}")))
	c.Assert(IsUnsupportedBackend(err), Equals, true, Commentf("%v", err))
	c.Assert(err.Error(), Matches, `.*"nginx".*`)

	_, err = Resolve(parse(c, fmt.Sprintf(riakTopology, "other: {}", "head: {ipaddr: R1}")))
	c.Assert(IsUnsupportedBackend(err), Equals, true, Commentf("%v", err))
}

const cephTopology = `name: test
default_attributes:
  ceph:
    topology:
      mons:
      - {ipaddr: M1, hostname: mon-1}
      - {ipaddr: M2, hostname: mon-2, init: %v}
      - {ipaddr: M3, hostname: mon-3, init: true}
      osds: %s
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5}
`

func (s *ResolveSuite) TestBlockStore(c *C) {
	g, err := Resolve(parse(c, fmt.Sprintf(cephTopology, true, "[{ipaddr: O1}, {ipaddr: O2}]")))
	c.Assert(err, IsNil)
	c.Assert(g.Hosts(MonBootstrap), DeepEquals, []string{"M2"})
	c.Assert(g.Hosts(CephMons), DeepEquals, []string{"M1", "M2", "M3"})
	c.Assert(g.Hosts(CephOSDs), DeepEquals, []string{"O1", "O2"})

	_, err = Resolve(parse(c, fmt.Sprintf(cephTopology, true, "[]")))
	c.Assert(IsMissingOsd(err), Equals, true, Commentf("%v", err))

	_, err = Resolve(parse(c, `name: test
default_attributes:
  ceph:
    topology:
      mons:
      - {ipaddr: M1}
      osds: [{ipaddr: O1}]
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5}
`))
	c.Assert(IsMissingBootstrapMonitor(err), Equals, true, Commentf("%v", err))
}

const overlayTopology = `name: test
default_attributes:
  eucalyptus:
    topology:
      clc-1: H1
      user-facing: [H2]
      walrus: H2
      clusters:
        one: {cc-1: H3, sc-1: H4, nodes: H5 H6}
    network:
      mode: VPCMIDO
      config-json:
        Mido:
          EucanetdHost: %s
  midokura:
    zookeepers: ['Z1:2181', Z2]
    cassandras: [C1]
    midolman-host-mapping:
      gw-1: G1
      clc: H1
`

func (s *ResolveSuite) TestOverlay(c *C) {
	g, err := Resolve(parse(c, fmt.Sprintf(overlayTopology, "gw-1")))
	c.Assert(err, IsNil)
	c.Assert(g.Hosts(MidonetAPI), DeepEquals, []string{"G1"})
	c.Assert(g.Hosts(Midolman), DeepEquals, []string{"G1", "H1", "H5", "H6"})
	c.Assert(g.Hosts(MidoZookeeper), DeepEquals, []string{"Z1", "Z2"})
	c.Assert(g.Hosts(MidoCassandra), DeepEquals, []string{"C1"})
	c.Assert(g.HasHost(All, "G1"), Equals, true)
	c.Assert(g.HasHost(All, "Z1"), Equals, true)

	_, err = Resolve(parse(c, fmt.Sprintf(overlayTopology, "gw-2")))
	c.Assert(schema.IsInvalidTopology(err), Equals, true)
	c.Assert(schema.InvalidTopologyPath(err), Equals, "midokura.midolman-host-mapping")
}

func (s *ResolveSuite) TestGraphIsNotModifiedThroughAccessors(c *C) {
	g, err := Resolve(parse(c, basicTopology))
	c.Assert(err, IsNil)

	hosts := g.HostSet(NodeController)
	hosts.Add("H9")
	g.Hosts(All)[0] = "H9"

	c.Assert(g.Hosts(NodeController), DeepEquals, []string{"H5", "H6"})
	c.Assert(g.HasHost(All, "H9"), Equals, false)
	c.Assert(g.RolesOf("H2"), DeepEquals, []Role{UserFacing, Walrus})
}
