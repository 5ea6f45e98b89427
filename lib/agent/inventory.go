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

package agent

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Inventory is the agent's registry of managed nodes
type Inventory interface {
	// Attributes returns the attributes the agent reported for the host
	Attributes(ctx context.Context, host string) (map[string]interface{}, error)
	// BulkDeregister removes all nodes of the environment from the registry
	BulkDeregister(ctx context.Context, environment string) error
}

// NodeDocuments is the local copy of the node documents
type NodeDocuments interface {
	// Attributes returns the node document of the host
	Attributes(host string) (map[string]interface{}, error)
	// Purge removes all node documents
	Purge() error
}

// InventoryConfig defines the local-mode inventory configuration
type InventoryConfig struct {
	// Nodes is the local copy of the node documents
	Nodes NodeDocuments
	// WorkDir is the local workspace directory
	WorkDir string
	// Runner runs knife
	Runner utils.CommandRunner
	// FieldLogger is used for logging
	logrus.FieldLogger
}

// CheckAndSetDefaults validates the config and sets defaults
func (c *InventoryConfig) CheckAndSetDefaults() error {
	if c.Nodes == nil {
		return trace.BadParameter("missing Nodes")
	}
	if c.WorkDir == "" {
		return trace.BadParameter("missing WorkDir")
	}
	if c.Runner == nil {
		c.Runner = utils.Runner
	}
	if c.FieldLogger == nil {
		c.FieldLogger = logrus.WithField(trace.Component, "inventory")
	}
	return nil
}

// NewInventory returns the inventory of an agent running in local mode
// where the registry is the nodes directory of the workspace
func NewInventory(config InventoryConfig) (*LocalInventory, error) {
	if err := config.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &LocalInventory{InventoryConfig: config}, nil
}

// LocalInventory is the inventory of an agent running in local mode
type LocalInventory struct {
	InventoryConfig
}

// Attributes returns the attributes the agent reported for the host
func (r *LocalInventory) Attributes(ctx context.Context, host string) (map[string]interface{}, error) {
	attrs, err := r.Nodes.Attributes(host)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return attrs, nil
}

// BulkDeregister deletes all nodes of the environment with knife and
// purges the local node documents
func (r *LocalInventory) BulkDeregister(ctx context.Context, environment string) error {
	var out bytes.Buffer
	args := []string{"knife", "node", "bulk", "delete", "-z", "-E", environment, "-y", ".*"}
	r.WithField("args", args).Info("Deregister nodes.")
	err := r.Runner.RunStream(ctx, &out, &out, args,
		utils.Dir(filepath.Join(r.WorkDir, defaults.ChefRepoDir)))
	if err != nil {
		return trace.Wrap(err, "failed to deregister nodes: %s", out.String())
	}
	return trace.Wrap(r.Nodes.Purge())
}
