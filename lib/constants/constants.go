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

// package constants contains global constants
// shared between packages
package constants

const (
	// ComponentDeployer names the deployer in logs
	ComponentDeployer = "deployer"

	// FieldHost specifies the declared host address in logs
	FieldHost = "host"
	// FieldNode specifies the agent-assigned node name in logs
	FieldNode = "node"
	// FieldPhase specifies the orchestration phase in logs
	FieldPhase = "phase"
	// FieldStep specifies the step within a phase in logs
	FieldStep = "step"
	// FieldOperationID is a logging field for operation id
	FieldOperationID = "opid"
	// FieldCommand is a command executed on a host
	FieldCommand = "cmd"

	// EncodingText is the human-readable output format
	EncodingText = "text"
	// EncodingJSON is the JSON output format
	EncodingJSON = "json"

	// NetworkModeVPCMido is the network mode that enables the Midokura overlay
	NetworkModeVPCMido = "VPCMIDO"

	// LoadBalancerHAProxy names the supported object-store load balancer backend
	LoadBalancerHAProxy = "haproxy"
	// LoadBalancerNginx names the recognized but unsupported backend
	LoadBalancerNginx = "nginx"

	// RunListKey is the node document attribute holding the run list
	RunListKey = "run_list"
	// NameKey is the node document attribute holding the node name
	NameKey = "name"
	// AutomaticKey is the node document section with agent-reported attributes
	AutomaticKey = "automatic"
	// NormalKey is the node document section with persistent node attributes
	NormalKey = "normal"
	// IPAddressKey is the automatic attribute used to resolve node identity
	IPAddressKey = "ipaddress"
	// HostnameKey is the automatic attribute with the node hostname
	HostnameKey = "hostname"

	// Redacted is used to hide sensitive values in logs
	Redacted = "********"
)

// Recipes applied outside of the configurable recipe table
const (
	// RecipeMidolman installs the overlay agent
	RecipeMidolman = "midokura::midolman"
	// RecipeZookeeper installs the overlay zookeeper ensemble member
	RecipeZookeeper = "midokura::zookeeper"
	// RecipeCassandra installs the overlay cassandra member
	RecipeCassandra = "midokura::cassandra"
	// RecipeCreateFirstResources seeds the overlay network
	RecipeCreateFirstResources = "midokura::create-first-resources"
	// RecipeRiakPlanCommit commits the object-store cluster membership plan
	RecipeRiakPlanCommit = "riakcs-cluster::plancommit"
	// RecipeRiakMergeCreds merges object-store credentials into the cloud
	RecipeRiakMergeCreds = "riakcs-cluster::mergecreds"
	// RecipeConfigureCloud configures the primary controller
	RecipeConfigureCloud = "eucalyptus::configure"
	// RecipeNukeEucalyptus removes the cloud components
	RecipeNukeEucalyptus = "eucalyptus::nuke"
	// RecipeNukeRiak removes the object-store cluster
	RecipeNukeRiak = "riakcs-cluster::nuke"
	// RecipeNukeCeph removes the block-store cluster
	RecipeNukeCeph = "ceph-cluster::nuke"
	// RecipeNukeHAProxy removes the load balancer
	RecipeNukeHAProxy = "haproxy::nuke"
)

// CloudKeys lists the cryptographic material the primary controller
// must report after bootstrap
var CloudKeys = []string{"cloud-cert.pem", "cloud-pk.pem", "euca.p12"}
