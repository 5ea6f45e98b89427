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
	"regexp"
	"strings"

	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/schema"
)

// networkingCheck verifies the network interfaces of every cloud host
type networkingCheck struct {
	Config
}

func (*networkingCheck) Name() string { return "networking" }

func (n *networkingCheck) Check(ctx context.Context, graph *roles.Graph, descriptor *schema.Descriptor) (Tally, error) {
	r := newReport(n.Out, KindDebugger, n.Name()).start()
	hosts := graph.AllHosts()

	r.Info("Verify recommended NIC configuration on all hosts")
	nics := n.exec(ctx, r, hosts, nicCommand)
	for _, host := range hosts {
		out, ok := nics[host]
		if !ok {
			continue
		}
		devices := parseNICs(out)
		r.check(len(devices) != 0, "%v: at least one NIC for a baseline deployment", host)
		if len(devices) == 0 {
			continue
		}
		var gigabit int
		for _, device := range devices {
			if gigabitNIC.MatchString(device) {
				gigabit++
			}
		}
		r.check(gigabit == len(devices), "%v: Gigabit requirement met for all network interfaces (%v of %v)",
			host, gigabit, len(devices))
	}
	return r.Tally(), nil
}

// nicCommand lists the network controllers of a host.
// No matches is a valid outcome and is reported by the check
const nicCommand = "lspci | egrep -i 'network|ethernet' || true"

var gigabitNIC = regexp.MustCompile(`Gigabit (Ethernet|Network)`)

func parseNICs(out string) (devices []string) {
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			devices = append(devices, line)
		}
	}
	return devices
}
