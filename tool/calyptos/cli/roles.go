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
	"fmt"
	"io"
	"strings"

	"github.com/eucalyptus/calyptos/lib/roles"

	"github.com/gravitational/trace"
	"github.com/olekukonko/tablewriter"
)

// printRoles prints the hosts of every role of the resolved topology
func printRoles(w io.Writer, path string) error {
	topology, err := loadTopology(path)
	if err != nil {
		return trace.Wrap(err)
	}
	fmt.Fprintf(w, "Environment: %v\n", topology.Descriptor.Name)
	writeRoles(w, topology.Graph)
	return nil
}

func writeRoles(w io.Writer, graph *roles.Graph) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Role", "Hosts"})
	table.SetAutoWrapText(false)

	var data [][]string
	for _, role := range roles.Roles {
		if !graph.Has(role) {
			continue
		}
		data = append(data, []string{string(role), strings.Join(graph.Hosts(role), ", ")})
	}
	for _, name := range graph.ClusterNames() {
		data = append(data, []string{"cluster " + name, strings.Join(graph.ClusterHosts(name), ", ")})
	}

	table.AppendBulk(data)
	table.Render()
}
