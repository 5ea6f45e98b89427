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
	"gopkg.in/alecthomas/kingpin.v2"
)

// Application represents the command-line "calyptos" application and contains
// definitions of all its flags, arguments and subcommands
type Application struct {
	*kingpin.Application
	// Debug allows to run the command in debug mode
	Debug *bool
	// Environment is the path to the topology descriptor
	Environment *string
	// ConfigFile is the path to the deployer configuration
	ConfigFile *string
	// User is the remote user
	User *string
	// Password is the remote user password
	Password *string
	// Identity is the path to the SSH private key
	Identity *string
	// StateDir is the local state directory with the operation journal
	StateDir *string
	// LogFile is the path to the log file
	LogFile *string
	// Parallel limits the number of hosts driven concurrently
	Parallel *int
	// MetricsFile is the optional path to write phase metrics to
	MetricsFile *string
	// NoUpdateRepo disables updating the cookbook branch
	NoUpdateRepo *bool
	// Branch overrides the cookbook branch
	Branch *string
	// CookbookRepo overrides the cookbook repository
	CookbookRepo *string
	// PrepareCmd installs the agent and registers hosts
	PrepareCmd PrepareCmd
	// BootstrapCmd brings up the base services
	BootstrapCmd BootstrapCmd
	// ProvisionCmd deploys the cloud on all hosts
	ProvisionCmd ProvisionCmd
	// UninstallCmd removes the cloud from all hosts
	UninstallCmd UninstallCmd
	// ValidateCmd runs validators against the topology
	ValidateCmd ValidateCmd
	// DebugCmd runs debuggers against the hosts
	DebugCmd DebugCmd
	// RolesCmd displays the resolved role graph
	RolesCmd RolesCmd
	// HistoryCmd displays journaled phase runs
	HistoryCmd HistoryCmd
	// VersionCmd displays the binary version
	VersionCmd VersionCmd
}

// PrepareCmd installs the agent on every host and registers it
type PrepareCmd struct {
	*kingpin.CmdClause
}

// BootstrapCmd brings up the base services in dependency order
type BootstrapCmd struct {
	*kingpin.CmdClause
}

// ProvisionCmd applies the recipe table on every host
type ProvisionCmd struct {
	*kingpin.CmdClause
}

// UninstallCmd removes the cloud from every host and deregisters the nodes
type UninstallCmd struct {
	*kingpin.CmdClause
}

// ValidateCmd runs validators
type ValidateCmd struct {
	*kingpin.CmdClause
	// Checks lists the validators to run, all if empty
	Checks *[]string
}

// DebugCmd runs debuggers
type DebugCmd struct {
	*kingpin.CmdClause
	// Checks lists the debuggers to run, all if empty
	Checks *[]string
}

// RolesCmd displays the resolved role graph
type RolesCmd struct {
	*kingpin.CmdClause
}

// HistoryCmd displays the journaled phase runs
type HistoryCmd struct {
	*kingpin.CmdClause
	// Limit limits the number of displayed operations
	Limit *int
}

// VersionCmd displays the binary version
type VersionCmd struct {
	*kingpin.CmdClause
	// Output is the output format
	Output *string
}
