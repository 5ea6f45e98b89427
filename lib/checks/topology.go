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

package checks

import (
	"context"
	"sort"

	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/schema"

	"github.com/gravitational/trace"
)

// riakCSKeys lists the settings required for an external object store cluster
var riakCSKeys = []string{"access-key", "admin-email", "admin-name", "endpoint", "port", "secret-key"}

// topology verifies the cloud topology is complete and consistent
type topology struct {
	Config
}

func (*topology) Name() string { return "topology" }

func (t *topology) Check(ctx context.Context, graph *roles.Graph, descriptor *schema.Descriptor) (Tally, error) {
	r := newReport(t.Out, KindValidator, t.Name()).start()
	euca := descriptor.DefaultAttributes.Eucalyptus
	if euca == nil {
		return r.Tally(), trace.BadParameter("missing eucalyptus attributes")
	}
	checkSingleCluster(r, graph)
	r.check(graph.Has(roles.CLC), "Cloud controller is present")
	r.check(graph.Has(roles.UserFacing), "User facing services are present")

	topology := euca.Topology
	switch {
	case topology.Walrus != "" && topology.RiakCS != nil:
		r.Failure("Can not have both riakcs and walrus keys configured")
		return r.Tally(), trace.BadParameter("both riakcs and walrus are configured")
	case topology.Walrus != "":
		r.check(graph.Has(roles.Walrus), "Walrus host is present")
	case topology.RiakCS != nil:
		for _, key := range riakCSKeys {
			value, ok := topology.RiakCS[key]
			r.check(ok && value != nil && value != "",
				"riakcs property %q is present", key)
		}
	case descriptor.ObjectClusterConfigured():
		r.check(graph.Has(roles.RiakHead), "Object store cluster head is present")
	default:
		r.Failure("Must have riakcs or walrus key defined")
	}

	for _, name := range topology.ClusterNames() {
		cluster := topology.Clusters[name]
		r.check(cluster.CC != "" && cluster.SC != "", "Cluster %v has both an SC and CC", name)
		r.check(len(cluster.Nodes) != 0, "Cluster %v has node controllers", name)
	}
	return r.Tally(), nil
}

// checkSingleCluster verifies that every cluster host belongs to exactly one cluster
func checkSingleCluster(r *report, graph *roles.Graph) {
	for _, name := range graph.ClusterNames() {
		for _, host := range graph.ClusterHosts(name) {
			var appearances []string
			for _, other := range graph.ClusterNames() {
				for _, otherHost := range graph.ClusterHosts(other) {
					if otherHost == host {
						appearances = append(appearances, other)
						break
					}
				}
			}
			sort.Strings(appearances)
			if len(appearances) > 1 {
				r.Failure("Found %v in multiple clusters: %v", host, appearances)
				continue
			}
			r.Success("%v only in 1 cluster", host)
		}
	}
}
