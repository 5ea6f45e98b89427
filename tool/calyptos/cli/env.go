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
	"os"
	"path/filepath"

	"github.com/eucalyptus/calyptos/lib/agent"
	"github.com/eucalyptus/calyptos/lib/config"
	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/metrics"
	"github.com/eucalyptus/calyptos/lib/nodestate"
	"github.com/eucalyptus/calyptos/lib/orchestrator"
	"github.com/eucalyptus/calyptos/lib/remote"
	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/schema"
	"github.com/eucalyptus/calyptos/lib/storage"
	"github.com/eucalyptus/calyptos/lib/storage/keyval"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
)

// Topology is the parsed descriptor and the role graph resolved from it
type Topology struct {
	// Descriptor is the parsed topology descriptor
	Descriptor *schema.Descriptor
	// Graph is the resolved role graph
	Graph *roles.Graph
}

// loadTopology parses the descriptor and resolves the role graph.
// Topology errors are reported before any host is contacted
func loadTopology(path string) (*Topology, error) {
	descriptor, err := schema.ParseEnvironment(path)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	graph, err := roles.Resolve(descriptor)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &Topology{Descriptor: descriptor, Graph: graph}, nil
}

// Environment bundles the collaborators of a deployment phase
type Environment struct {
	Topology
	// Chef is the deployer configuration
	Chef *config.Chef
	// Workspace is the local chef repository
	Workspace *agent.Workspace
	// Executor runs commands on hosts
	Executor remote.Executor
	// Agent drives the configuration agent on hosts
	Agent *agent.Agent
	// Store tracks host run lists
	Store *nodestate.Store
	// Inventory is the agent's node registry
	Inventory agent.Inventory
	// Journal records phase runs
	Journal storage.Backend
	// Metrics collects phase metrics
	Metrics *metrics.Metrics

	bootstrapper *orchestrator.Bootstrapper
}

// newEnvironment creates the deployment environment from the command line flags
func newEnvironment(g Application) (env *Environment, err error) {
	topology, err := loadTopology(*g.Environment)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	cfg, err := config.Parse(*g.ConfigFile)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	chef := cfg.Deployer.Chef
	if *g.Branch != "" {
		chef.Branch = *g.Branch
	}
	if *g.CookbookRepo != "" {
		chef.CookbookRepo = *g.CookbookRepo
	}
	workDir, err := os.Getwd()
	if err != nil {
		return nil, trace.ConvertSystemError(err)
	}
	workspace, err := agent.NewWorkspace(agent.WorkspaceConfig{
		Dir:          workDir,
		CookbookRepo: chef.CookbookRepo,
		Branch:       chef.Branch,
		UpdateRepo:   *chef.UpdateRepo && !*g.NoUpdateRepo,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	env = &Environment{
		Topology:  *topology,
		Chef:      chef,
		Workspace: workspace,
		Metrics:   metrics.New(),
	}
	defer func() {
		if err != nil {
			env.Close()
		}
	}()
	env.Journal, err = openJournal(*g.StateDir, false)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	executor, err := newExecutor(g)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	env.Executor = executor
	env.Agent, err = agent.New(agent.Config{
		Executor:    env.Executor,
		Environment: topology.Descriptor.Name,
		WorkDir:     workDir,
		Parallel:    *g.Parallel,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	env.bootstrapper = &orchestrator.Bootstrapper{Driver: env.Agent}
	env.Store, err = nodestate.New(nodestate.Config{
		Documents:    nodestate.NewDirDocuments(workspace.NodesDir()),
		Bootstrapper: env.bootstrapper,
		Parallel:     *g.Parallel,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	env.bootstrapper.Importer = env.Store
	inventory, err := agent.NewInventory(agent.InventoryConfig{
		Nodes:   env.Store,
		WorkDir: workDir,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	env.Inventory = inventory
	return env, nil
}

// Orchestrator returns the phase orchestrator reporting to progress
func (e *Environment) Orchestrator(progress utils.Progress) (*orchestrator.Orchestrator, error) {
	return orchestrator.New(orchestrator.Config{
		Graph:      e.Graph,
		Descriptor: e.Descriptor,
		Chef:       e.Chef,
		Store:      e.Store,
		Driver:     e.Agent,
		Inventory:  e.Inventory,
		Journal:    e.Journal,
		Metrics:    e.Metrics,
		Progress:   progress,
	})
}

// Close releases the connections and the journal
func (e *Environment) Close() error {
	var errors []error
	if e.Executor != nil {
		errors = append(errors, e.Executor.Close())
	}
	if e.Journal != nil {
		errors = append(errors, e.Journal.Close())
	}
	return trace.NewAggregate(errors...)
}

// newExecutor returns the SSH executor configured from the command line flags
func newExecutor(g Application) (*remote.SSHExecutor, error) {
	executor, err := remote.NewSSHExecutor(remote.Config{
		Session: remote.Session{
			User:           *g.User,
			Password:       *g.Password,
			PrivateKeyPath: *g.Identity,
		},
		Parallel: *g.Parallel,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return executor, nil
}

// openJournal opens the operation journal in stateDir
func openJournal(stateDir string, readonly bool) (storage.Backend, error) {
	if stateDir == "" {
		stateDir = defaults.StateDir()
	}
	if err := utils.MkdirAll(stateDir, defaults.SharedDirMask); err != nil {
		return nil, trace.Wrap(err)
	}
	journal, err := keyval.NewBolt(keyval.BoltConfig{
		Path:     filepath.Join(stateDir, defaults.JournalFile),
		Readonly: readonly,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return journal, nil
}
