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
	"encoding/json"
	"sort"
	"strings"

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/schema"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
)

// Resolve derives the role graph from the environment descriptor.
// It has no side effects and returns the same graph for the same descriptor.
func Resolve(descriptor *schema.Descriptor) (*Graph, error) {
	euca := descriptor.DefaultAttributes.Eucalyptus
	if euca == nil {
		return nil, schema.InvalidTopology("eucalyptus", "section is required")
	}
	if err := checkTopology(descriptor); err != nil {
		return nil, trace.Wrap(err)
	}

	g := newGraph()
	topology := euca.Topology
	g.add(CLC, topology.CLC)
	g.add(UserFacing, topology.UserFacing...)
	g.add(Console, topology.Console...)
	g.add(Walrus, topology.Walrus)

	if err := g.addClusters(topology); err != nil {
		return nil, trace.Wrap(err)
	}
	if descriptor.OverlayEnabled() {
		if err := g.addOverlay(euca.Network, descriptor.DefaultAttributes.Midokura); err != nil {
			return nil, trace.Wrap(err)
		}
	}
	if cluster := descriptor.DefaultAttributes.RiakCSCluster; cluster != nil {
		if err := g.addObjectCluster(cluster.Topology, descriptor.DefaultAttributes); err != nil {
			return nil, trace.Wrap(err)
		}
	}
	if ceph := descriptor.DefaultAttributes.Ceph; ceph != nil {
		if err := g.addBlockStore(ceph.Topology); err != nil {
			return nil, trace.Wrap(err)
		}
	}
	if err := g.check(); err != nil {
		return nil, trace.Wrap(err)
	}
	return g, nil
}

// checkTopology verifies the mandatory cloud roles and every declared
// cluster before any host set is built
func checkTopology(descriptor *schema.Descriptor) error {
	topology := descriptor.DefaultAttributes.Eucalyptus.Topology
	if topology.CLC == "" {
		return schema.InvalidTopology("eucalyptus.topology.clc-1", "primary cloud controller is required")
	}
	if len(nonEmpty(topology.UserFacing)) == 0 {
		return schema.InvalidTopology("eucalyptus.topology.user-facing", "at least one user facing host is required")
	}
	objectCluster := descriptor.ObjectClusterConfigured()
	if topology.Walrus != "" && objectCluster {
		return schema.InvalidTopology("eucalyptus.topology.walrus",
			"walrus can not be configured together with a RiakCS object store")
	}
	if topology.Walrus == "" && !objectCluster {
		return schema.InvalidTopology("eucalyptus.topology",
			"either walrus or a RiakCS object store must be configured")
	}
	if len(topology.Clusters) == 0 {
		return schema.InvalidTopology("eucalyptus.topology.clusters", "at least one cluster is required")
	}
	for _, name := range topology.ClusterNames() {
		cluster := topology.Clusters[name]
		path := "eucalyptus.topology.clusters." + name
		if cluster.CC == "" {
			return schema.InvalidTopology(path+".cc-1", "cluster controller is required")
		}
		if cluster.SC == "" {
			return schema.InvalidTopology(path+".sc-1", "storage controller is required")
		}
		if len(nonEmpty(cluster.Nodes)) == 0 {
			return schema.InvalidTopology(path+".nodes", "at least one node controller is required")
		}
	}
	return nil
}

// addClusters builds the host set of every cluster and rejects hosts
// that belong to more than one cluster
func (g *Graph) addClusters(topology schema.Topology) error {
	clusters := make(map[string]utils.StringSet, len(topology.Clusters))
	for _, name := range topology.ClusterNames() {
		cluster := topology.Clusters[name]
		hosts := utils.NewStringSetFromSlice(append([]string{cluster.CC, cluster.SC}, nonEmpty(cluster.Nodes)...))
		for _, other := range sortedKeys(clusters) {
			if common := hosts.Intersect(clusters[other]); len(common) != 0 {
				return schema.InvalidTopology("eucalyptus.topology.clusters."+name,
					"hosts %v are also members of cluster %q, a host can belong to a single cluster",
					common, other)
			}
		}
		clusters[name] = hosts
	}
	for name, hosts := range clusters {
		cluster := topology.Clusters[name]
		g.add(ClusterController, cluster.CC)
		g.add(StorageController, cluster.SC)
		g.add(NodeController, nonEmpty(cluster.Nodes)...)
		g.clusters[name] = hosts
	}
	return nil
}

// addOverlay resolves the midokura overlay roles
func (g *Graph) addOverlay(network schema.Network, midokura *schema.Midokura) error {
	mido := network.Config.Mido
	if mido == nil {
		return schema.InvalidTopology("eucalyptus.network.config-json.Mido",
			"overlay configuration is required in %v mode", constants.NetworkModeVPCMido)
	}
	if midokura == nil || len(midokura.HostMapping) == 0 {
		return schema.InvalidTopology("midokura.midolman-host-mapping",
			"host mapping is required in %v mode", constants.NetworkModeVPCMido)
	}
	hostname := mido.APIHostname()
	if hostname == "" {
		return schema.InvalidTopology("eucalyptus.network.config-json.Mido.EucanetdHost",
			"midonet-api hostname is required in %v mode", constants.NetworkModeVPCMido)
	}
	addr, ok := midokura.HostMapping[hostname]
	if !ok || addr == "" {
		return schema.InvalidTopology("midokura.midolman-host-mapping",
			"unable to find midonet-api (%v) host in midolman-host-mapping", hostname)
	}
	g.add(MidonetAPI, addr)
	for _, host := range midokura.HostMapping {
		g.add(Midolman, host)
	}
	g.add(Midolman, g.Hosts(NodeController)...)
	for _, entry := range midokura.Zookeepers {
		g.add(MidoZookeeper, strings.SplitN(entry, ":", 2)[0])
	}
	g.add(MidoCassandra, midokura.Cassandras...)
	return nil
}

// addObjectCluster resolves the RiakCS cluster roles
func (g *Graph) addObjectCluster(topology schema.RiakCSTopology, attrs schema.Attributes) error {
	if topology.Head == nil || topology.Head.IPAddr == "" {
		return trace.Wrap(&MissingHeadNodeError{})
	}
	g.add(RiakHead, topology.Head.IPAddr)
	g.add(RiakNode, topology.Nodes...)
	if topology.LoadBalancer == "" {
		return nil
	}
	switch {
	case present(attrs.Nginx):
		return trace.Wrap(&UnsupportedBackendError{Backend: constants.LoadBalancerNginx})
	case present(attrs.HAProxy):
		g.add(HAProxy, topology.LoadBalancer)
	default:
		return trace.Wrap(&UnsupportedBackendError{})
	}
	return nil
}

// addBlockStore resolves the Ceph cluster roles. The first monitor marked
// with init bootstraps the cluster.
func (g *Graph) addBlockStore(topology schema.CephTopology) error {
	var bootstrap string
	for _, mon := range topology.Mons {
		if mon.Init && bootstrap == "" {
			bootstrap = mon.IPAddr
		}
	}
	if bootstrap == "" {
		return trace.Wrap(&MissingBootstrapMonitorError{})
	}
	if len(topology.OSDs) == 0 {
		return trace.Wrap(&MissingOsdError{})
	}
	g.add(MonBootstrap, bootstrap)
	for _, mon := range topology.Mons {
		g.add(CephMons, mon.IPAddr)
	}
	for _, osd := range topology.OSDs {
		g.add(CephOSDs, osd.IPAddr)
	}
	return nil
}

// check verifies the invariants of a resolved graph
func (g *Graph) check() error {
	if !g.Has(CLC) {
		return schema.InvalidTopology("eucalyptus.topology.clc-1", "primary cloud controller is required")
	}
	if !g.Has(UserFacing) {
		return schema.InvalidTopology("eucalyptus.topology.user-facing", "at least one user facing host is required")
	}
	for host := range g.roles[All] {
		if len(g.RolesOf(host)) == 0 {
			return trace.BadParameter("host %v does not play any role", host)
		}
	}
	for name, hosts := range g.clusters {
		for other, otherHosts := range g.clusters {
			if name != other && len(hosts.Intersect(otherHosts)) != 0 {
				return schema.InvalidTopology("eucalyptus.topology.clusters."+name,
					"cluster shares hosts with cluster %q", other)
			}
		}
	}
	return nil
}

func present(block json.RawMessage) bool {
	s := strings.TrimSpace(string(block))
	return s != "" && s != "null"
}

func nonEmpty(hosts []string) []string {
	var out []string
	for _, host := range hosts {
		if host = strings.TrimSpace(host); host != "" {
			out = append(out, host)
		}
	}
	return out
}

func sortedKeys(clusters map[string]utils.StringSet) []string {
	names := make([]string, 0, len(clusters))
	for name := range clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
