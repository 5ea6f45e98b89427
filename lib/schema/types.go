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
	"sort"
	"strings"

	"github.com/eucalyptus/calyptos/lib/constants"

	"github.com/gravitational/trace"
)

// Descriptor is the parsed deployment environment
type Descriptor struct {
	// Name is the environment name used by the agent
	Name string `json:"name"`
	// Description is an optional environment description
	Description string `json:"description,omitempty"`
	// DefaultAttributes contains the deployment topology and the
	// per-subsystem attribute blocks
	DefaultAttributes Attributes `json:"default_attributes"`

	// raw is the complete document as it was parsed, including
	// the keys the deployer does not interpret
	raw map[string]interface{}
}

// Attributes groups the subsystem sections of an environment
type Attributes struct {
	// Eucalyptus describes the cloud topology
	Eucalyptus *Eucalyptus `json:"eucalyptus,omitempty"`
	// RiakCSCluster describes the optional object store cluster
	RiakCSCluster *RiakCSCluster `json:"riakcs_cluster,omitempty"`
	// Ceph describes the optional block store cluster
	Ceph *Ceph `json:"ceph,omitempty"`
	// Midokura contains overlay network attributes
	Midokura *Midokura `json:"midokura,omitempty"`
	// HAProxy is the haproxy load balancer attribute block
	HAProxy json.RawMessage `json:"haproxy,omitempty"`
	// Nginx is the nginx load balancer attribute block
	Nginx json.RawMessage `json:"nginx,omitempty"`
}

// Eucalyptus is the eucalyptus attribute block
type Eucalyptus struct {
	// Topology maps cloud components to hosts
	Topology Topology `json:"topology"`
	// Network is the cloud network configuration
	Network Network `json:"network"`
	// DefaultImageURL is the URL of the default image
	DefaultImageURL string `json:"default-img-url,omitempty"`
	// Euca2oolsRepo is the euca2ools package repository
	Euca2oolsRepo string `json:"euca2ools-repo,omitempty"`
	// EucalyptusRepo is the eucalyptus package repository
	EucalyptusRepo string `json:"eucalyptus-repo,omitempty"`
	// InitScriptURL is the URL of the instance init script
	InitScriptURL string `json:"init-script-url,omitempty"`
	// PostScriptURL is the URL of the post-install script
	PostScriptURL string `json:"post-script-url,omitempty"`
}

// Topology maps cloud components to hosts
type Topology struct {
	// CLC is the primary cloud controller
	CLC string `json:"clc-1,omitempty"`
	// UserFacing lists user facing service hosts
	UserFacing []string `json:"user-facing,omitempty"`
	// Console lists management console hosts
	Console []string `json:"console,omitempty"`
	// Walrus is the legacy object store host
	Walrus string `json:"walrus,omitempty"`
	// RiakCS holds the endpoint settings of an external object store
	RiakCS map[string]interface{} `json:"riakcs,omitempty"`
	// Clusters maps cluster names to their components
	Clusters map[string]Cluster `json:"clusters,omitempty"`
}

// ClusterNames returns cluster names in sorted order
func (t Topology) ClusterNames() []string {
	names := make([]string, 0, len(t.Clusters))
	for name := range t.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cluster is a single named cluster
type Cluster struct {
	// CC is the cluster controller host
	CC string `json:"cc-1,omitempty"`
	// SC is the storage controller host
	SC string `json:"sc-1,omitempty"`
	// Nodes lists the node controller hosts
	Nodes NodeList `json:"nodes,omitempty"`
}

// NodeList is a list of hosts that is either given as a whitespace
// separated string or as a list
type NodeList []string

// UnmarshalJSON accepts both the string and the list forms
func (n *NodeList) UnmarshalJSON(data []byte) error {
	var hosts []string
	if err := json.Unmarshal(data, &hosts); err == nil {
		*n = hosts
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return trace.BadParameter("expected a list of hosts or a space separated string, got %s", data)
	}
	*n = strings.Fields(s)
	return nil
}

// Network is the cloud network configuration
type Network struct {
	// Mode is the network mode
	Mode string `json:"mode,omitempty"`
	// Config is the network configuration document
	Config NetworkConfig `json:"config-json"`
}

// NetworkConfig is the network configuration document
type NetworkConfig struct {
	// Mido configures the midokura overlay
	Mido *MidoConfig `json:"Mido,omitempty"`
}

// MidoConfig configures the midokura overlay
type MidoConfig struct {
	// EucanetdHost is the hostname of the midonet api host
	EucanetdHost string `json:"EucanetdHost,omitempty"`
	// GatewayHost is the legacy single gateway hostname
	GatewayHost string `json:"GatewayHost,omitempty"`
	// Gateways lists overlay gateways
	Gateways []MidoGateway `json:"Gateways,omitempty"`
}

// MidoGateway is a single overlay gateway
type MidoGateway struct {
	// GatewayHost is the gateway hostname
	GatewayHost string `json:"GatewayHost,omitempty"`
	// GatewayIP is the gateway address
	GatewayIP string `json:"GatewayIP,omitempty"`
	// GatewayInterface is the gateway network interface
	GatewayInterface string `json:"GatewayInterface,omitempty"`
}

// APIHostname returns the hostname of the overlay gateway that runs
// the midonet api
func (m MidoConfig) APIHostname() string {
	if m.EucanetdHost != "" {
		return m.EucanetdHost
	}
	for _, gw := range m.Gateways {
		if gw.GatewayHost != "" {
			return gw.GatewayHost
		}
	}
	return m.GatewayHost
}

// RiakCSCluster is the object store cluster attribute block
type RiakCSCluster struct {
	Topology RiakCSTopology `json:"topology"`
}

// RiakCSTopology describes the object store cluster hosts
type RiakCSTopology struct {
	// Head is the cluster head node
	Head *RiakCSHead `json:"head,omitempty"`
	// Nodes lists member hosts
	Nodes []string `json:"nodes,omitempty"`
	// LoadBalancer is the optional load balancer host
	LoadBalancer string `json:"load_balancer,omitempty"`
}

// RiakCSHead is the object store cluster head node
type RiakCSHead struct {
	IPAddr string `json:"ipaddr"`
}

// Ceph is the block store attribute block
type Ceph struct {
	Topology CephTopology `json:"topology"`
}

// CephTopology describes the block store hosts
type CephTopology struct {
	// Mons lists monitor hosts
	Mons []CephHost `json:"mons,omitempty"`
	// OSDs lists object storage daemon hosts
	OSDs []CephHost `json:"osds,omitempty"`
}

// CephHost is a single block store host
type CephHost struct {
	IPAddr   string `json:"ipaddr"`
	Hostname string `json:"hostname,omitempty"`
	// Init marks the monitor used to bootstrap the cluster
	Init bool `json:"init,omitempty"`
}

// Midokura contains the overlay network attributes
type Midokura struct {
	// Zookeepers lists zookeeper ensemble entries as host:port
	Zookeepers []string `json:"zookeepers,omitempty"`
	// Cassandras lists cassandra hosts
	Cassandras []string `json:"cassandras,omitempty"`
	// HostMapping maps midolman hostnames to addresses
	HostMapping map[string]string `json:"midolman-host-mapping,omitempty"`
}

// NetworkMode returns the configured network mode
func (d *Descriptor) NetworkMode() string {
	if d.DefaultAttributes.Eucalyptus == nil {
		return ""
	}
	return d.DefaultAttributes.Eucalyptus.Network.Mode
}

// OverlayEnabled returns true if the cloud uses midokura overlay networking
func (d *Descriptor) OverlayEnabled() bool {
	return d.NetworkMode() == constants.NetworkModeVPCMido
}

// ObjectClusterConfigured returns true if an object store cluster is configured
// either as a managed cluster or as an external endpoint
func (d *Descriptor) ObjectClusterConfigured() bool {
	if d.DefaultAttributes.RiakCSCluster != nil {
		return true
	}
	euca := d.DefaultAttributes.Eucalyptus
	return euca != nil && euca.Topology.RiakCS != nil
}

// RepoURLs returns the repository and script URLs configured
// for the cloud keyed by attribute name
func (d *Descriptor) RepoURLs() map[string]string {
	urls := make(map[string]string)
	euca := d.DefaultAttributes.Eucalyptus
	if euca == nil {
		return urls
	}
	for key, url := range map[string]string{
		"default-img-url": euca.DefaultImageURL,
		"euca2ools-repo":  euca.Euca2oolsRepo,
		"eucalyptus-repo": euca.EucalyptusRepo,
		"init-script-url": euca.InitScriptURL,
		"post-script-url": euca.PostScriptURL,
	} {
		if url != "" {
			urls[key] = url
		}
	}
	return urls
}

// EnvironmentJSON returns the complete environment document as indented
// JSON with sorted keys, suitable for the agent's environments directory
func (d *Descriptor) EnvironmentJSON() ([]byte, error) {
	doc := d.raw
	if doc == nil {
		// descriptor was built in code rather than parsed
		data, err := json.Marshal(d)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, trace.Wrap(err)
		}
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return data, nil
}
