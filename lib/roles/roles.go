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

// Package roles resolves a deployment environment into the set of hosts
// that play each logical role in the cloud
package roles

import (
	"sort"

	"github.com/eucalyptus/calyptos/lib/utils"
)

// Role is a logical function a host plays in the deployed cloud
type Role string

const (
	// CLC is the primary cloud controller
	CLC Role = "clc"
	// UserFacing runs the user facing services
	UserFacing Role = "user-facing"
	// Console runs the management console
	Console Role = "console"
	// Walrus is the legacy object store
	Walrus Role = "walrus"
	// ClusterController is a cluster controller
	ClusterController Role = "cluster-controller"
	// StorageController is a cluster storage controller
	StorageController Role = "storage-controller"
	// NodeController is a compute node
	NodeController Role = "node-controller"
	// MidonetAPI is the overlay network gateway running the midonet api
	MidonetAPI Role = "midonet-api"
	// Midolman is an overlay network agent
	Midolman Role = "midolman"
	// MidoZookeeper is an overlay zookeeper ensemble member
	MidoZookeeper Role = "mido-zookeeper"
	// MidoCassandra is an overlay cassandra member
	MidoCassandra Role = "mido-cassandra"
	// MonBootstrap is the block store monitor used to bootstrap the cluster
	MonBootstrap Role = "mon-bootstrap"
	// CephMons are block store monitors
	CephMons Role = "ceph-mons"
	// CephOSDs are block store object storage daemons
	CephOSDs Role = "ceph-osds"
	// RiakHead is the object store cluster head
	RiakHead Role = "riak-head"
	// RiakNode is an object store cluster member
	RiakNode Role = "riak-node"
	// HAProxy is the object store load balancer
	HAProxy Role = "haproxy"
	// All contains every host of the deployment
	All Role = "all"
)

// Roles lists all roles in their canonical order
var Roles = []Role{
	CLC,
	UserFacing,
	Console,
	Walrus,
	ClusterController,
	StorageController,
	NodeController,
	MidonetAPI,
	Midolman,
	MidoZookeeper,
	MidoCassandra,
	MonBootstrap,
	CephMons,
	CephOSDs,
	RiakHead,
	RiakNode,
	HAProxy,
	All,
}

// IsValid returns true if r is one of the known roles
func (r Role) IsValid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Graph maps roles and clusters to host sets.
// A graph is not modified after it has been resolved: all accessors
// return copies.
type Graph struct {
	roles    map[Role]utils.StringSet
	clusters map[string]utils.StringSet
}

func newGraph() *Graph {
	g := &Graph{
		roles:    make(map[Role]utils.StringSet, len(Roles)),
		clusters: make(map[string]utils.StringSet),
	}
	for _, role := range Roles {
		g.roles[role] = utils.NewStringSet()
	}
	return g
}

// Hosts returns the hosts that play the specified role in sorted order
func (g *Graph) Hosts(role Role) []string {
	return g.roles[role].Slice()
}

// HostSet returns a copy of the host set of the specified role
func (g *Graph) HostSet(role Role) utils.StringSet {
	if hosts, ok := g.roles[role]; ok {
		return hosts.Clone()
	}
	return utils.NewStringSet()
}

// Has returns true if at least one host plays the specified role
func (g *Graph) Has(role Role) bool {
	return len(g.roles[role]) != 0
}

// HasHost returns true if host plays the specified role
func (g *Graph) HasHost(role Role, host string) bool {
	return g.roles[role].Has(host)
}

// AllHosts returns every host of the deployment in sorted order
func (g *Graph) AllHosts() []string {
	return g.Hosts(All)
}

// RolesOf returns the roles the specified host plays, excluding All
func (g *Graph) RolesOf(host string) []Role {
	var roles []Role
	for _, role := range Roles {
		if role != All && g.roles[role].Has(host) {
			roles = append(roles, role)
		}
	}
	return roles
}

// ClusterNames returns the names of the clusters in sorted order
func (g *Graph) ClusterNames() []string {
	names := make([]string, 0, len(g.clusters))
	for name := range g.clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClusterHosts returns the hosts of the named cluster in sorted order
func (g *Graph) ClusterHosts(name string) []string {
	return g.clusters[name].Slice()
}

// ClusterOf returns the name of the cluster the host belongs to
func (g *Graph) ClusterOf(host string) (name string, ok bool) {
	for name, hosts := range g.clusters {
		if hosts.Has(host) {
			return name, true
		}
	}
	return "", false
}

func (g *Graph) add(role Role, hosts ...string) {
	for _, host := range hosts {
		if host == "" {
			continue
		}
		g.roles[role].Add(host)
		g.roles[All].Add(host)
	}
}
