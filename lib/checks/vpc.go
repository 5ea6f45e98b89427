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

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/schema"
	"github.com/eucalyptus/calyptos/lib/utils"
)

// vpc verifies the overlay network configuration
type vpc struct {
	Config
}

func (*vpc) Name() string { return "vpc" }

func (v *vpc) Check(ctx context.Context, graph *roles.Graph, descriptor *schema.Descriptor) (Tally, error) {
	r := newReport(v.Out, KindValidator, v.Name()).start()
	if descriptor.NetworkMode() != constants.NetworkModeVPCMido {
		r.Info("Network mode is %q, skipping VPC checks", descriptor.NetworkMode())
		return r.Tally(), nil
	}
	mido := descriptor.DefaultAttributes.Eucalyptus.Network.Config.Mido
	if mido == nil {
		r.Failure("VPC - missing network config-json Mido section")
		return r.Tally(), nil
	}
	gateways := checkGateways(r, *mido)
	checkHostMapping(r, graph, descriptor.DefaultAttributes.Midokura, gateways)
	return r.Tally(), nil
}

// checkGateways verifies gateway definitions and returns the gateway hostnames
func checkGateways(r *report, mido schema.MidoConfig) utils.StringSet {
	hostnames := utils.NewStringSet()
	if mido.GatewayHost != "" {
		r.Success("VPC - legacy \"GatewayHost\" defined: %v", mido.GatewayHost)
		hostnames.Add(mido.GatewayHost)
		return hostnames
	}
	if len(mido.Gateways) == 0 {
		r.Failure("VPC - no \"Gateways\" defined in the Mido section")
		return hostnames
	}
	for _, gw := range mido.Gateways {
		if gw.GatewayHost == "" {
			r.Failure("VPC - \"GatewayHost\" (hostname) for gateway missing or not defined")
		} else {
			r.Success("VPC - \"GatewayHost\" defined: %v", gw.GatewayHost)
			hostnames.Add(gw.GatewayHost)
		}
		if gw.GatewayIP == "" {
			r.Failure("VPC - \"GatewayIP\" (ip address) for gateway missing or not defined")
		} else {
			r.Success("VPC - \"GatewayIP\" defined: %v", gw.GatewayIP)
		}
		if gw.GatewayInterface == "" {
			r.Failure("VPC - \"GatewayInterface\" (network interface) for gateway missing or not defined")
		} else {
			r.Success("VPC - \"GatewayInterface\" defined: %v", gw.GatewayInterface)
		}
	}
	return hostnames
}

// checkHostMapping verifies the midolman host mapping covers the controller
// and compute nodes and only names cloud hosts
func checkHostMapping(r *report, graph *roles.Graph, midokura *schema.Midokura, gateways utils.StringSet) {
	if midokura == nil || len(midokura.HostMapping) == 0 {
		r.Failure("VPC - missing midokura midolman-host-mapping")
		return
	}
	r.Success("VPC - Midolman host mapping exists")
	mapped := utils.NewStringSet()
	hostnames := make([]string, 0, len(midokura.HostMapping))
	for hostname, ip := range midokura.HostMapping {
		hostnames = append(hostnames, hostname)
		mapped.Add(ip)
	}
	sort.Strings(hostnames)
	for _, hostname := range hostnames {
		ip := midokura.HostMapping[hostname]
		if !graph.HasHost(roles.CLC, ip) && !graph.HasHost(roles.NodeController, ip) && !gateways.Has(hostname) {
			r.Failure("VPC - the host %v:%v is in the Midolman host mapping but is not an NC, CLC or Mido gateway",
				hostname, ip)
			continue
		}
		r.Success("VPC - %v:%v is either an NC, CLC or Mido gateway", hostname, ip)
	}
	for _, ip := range graph.Hosts(roles.CLC) {
		r.check(mapped.Has(ip), "VPC - CLC %v is in the Midolman host mapping", ip)
	}
	for _, ip := range graph.Hosts(roles.NodeController) {
		r.check(mapped.Has(ip), "VPC - NC %v is in the Midolman host mapping", ip)
	}
}
