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

// Package orchestrator drives the deployment phases over the role graph
package orchestrator

import (
	"context"
	"os"

	"github.com/eucalyptus/calyptos/lib/agent"
	"github.com/eucalyptus/calyptos/lib/config"
	"github.com/eucalyptus/calyptos/lib/metrics"
	"github.com/eucalyptus/calyptos/lib/remote"
	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/run"
	"github.com/eucalyptus/calyptos/lib/schema"
	"github.com/eucalyptus/calyptos/lib/storage"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// NodeStore tracks the run lists assigned to hosts
type NodeStore interface {
	agent.Importer
	// Load resolves the specified hosts to node documents
	Load(hosts []string) (run.Errors, error)
	// Assign adds units to the run list of each host
	Assign(ctx context.Context, hosts []string, units []string) run.Errors
	// Clear empties the run list of each host
	Clear(ctx context.Context, hosts []string) run.Errors
}

// Driver drives the configuration agent on hosts
type Driver interface {
	// SyncTrust installs the local public key on hosts
	SyncTrust(ctx context.Context, hosts []string) (remote.Results, error)
	// Push synchronizes the local workspace to hosts
	Push(ctx context.Context, hosts []string) remote.Results
	// Install installs the agent on hosts that do not have it
	Install(ctx context.Context, hosts []string) remote.Results
	// Apply runs the agent on hosts
	Apply(ctx context.Context, hosts []string) remote.Results
	// Pull fetches the node documents reported by the agent on hosts
	Pull(ctx context.Context, hosts []string, importer agent.Importer) remote.Results
}

// Config defines the orchestrator configuration
type Config struct {
	// Graph is the resolved role graph
	Graph *roles.Graph
	// Descriptor is the topology descriptor the graph was resolved from
	Descriptor *schema.Descriptor
	// Chef is the per-role recipe table
	Chef *config.Chef
	// Store tracks host run lists
	Store NodeStore
	// Driver drives the agent on hosts
	Driver Driver
	// Inventory is the agent's node registry
	Inventory agent.Inventory
	// Journal records phase runs. Optional
	Journal storage.Operations
	// Metrics collects phase metrics
	Metrics *metrics.Metrics
	// Clock is used to timestamp steps
	Clock clockwork.Clock
	// FailureLogDir is the directory per-host failure logs are written to
	FailureLogDir string
	// Progress reports progress to the console
	Progress utils.Progress
	// FieldLogger is used for logging
	logrus.FieldLogger
}

// CheckAndSetDefaults validates the config and sets defaults
func (c *Config) CheckAndSetDefaults() error {
	if c.Graph == nil {
		return trace.BadParameter("missing Graph")
	}
	if c.Descriptor == nil {
		return trace.BadParameter("missing Descriptor")
	}
	if c.Chef == nil {
		return trace.BadParameter("missing Chef")
	}
	if c.Store == nil {
		return trace.BadParameter("missing Store")
	}
	if c.Driver == nil {
		return trace.BadParameter("missing Driver")
	}
	if c.Inventory == nil {
		return trace.BadParameter("missing Inventory")
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.FailureLogDir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return trace.ConvertSystemError(err)
		}
		c.FailureLogDir = dir
	}
	if c.Progress == nil {
		c.Progress = utils.DiscardProgress
	}
	if c.FieldLogger == nil {
		c.FieldLogger = logrus.WithField(trace.Component, "orchestrator")
	}
	return nil
}

// Orchestrator sequences the deployment phases
type Orchestrator struct {
	Config
}

// New returns a new orchestrator
func New(config Config) (*Orchestrator, error) {
	if err := config.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Orchestrator{Config: config}, nil
}

func (o *Orchestrator) environment() string {
	return o.Descriptor.Name
}
