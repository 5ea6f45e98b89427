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
	"os"
	"path/filepath"

	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/schema"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// WorkspaceConfig defines the local workspace configuration
type WorkspaceConfig struct {
	// Dir is the workspace directory
	Dir string
	// CookbookRepo is the cookbook repository URL
	CookbookRepo string
	// Branch is the cookbook branch
	Branch string
	// UpdateRepo enables checking out and pulling the cookbook branch
	UpdateRepo bool
	// Runner runs the local tools
	Runner utils.CommandRunner
	// FieldLogger is used for logging
	logrus.FieldLogger
}

// CheckAndSetDefaults validates the config and sets defaults
func (c *WorkspaceConfig) CheckAndSetDefaults() error {
	if c.Dir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return trace.ConvertSystemError(err)
		}
		c.Dir = dir
	}
	if c.CookbookRepo == "" {
		c.CookbookRepo = defaults.CookbookRepo
	}
	if c.Branch == "" {
		c.Branch = defaults.CookbookBranch
	}
	if c.Runner == nil {
		c.Runner = utils.Runner
	}
	if c.FieldLogger == nil {
		c.FieldLogger = logrus.WithField(trace.Component, "workspace")
	}
	return nil
}

// Workspace is the local chef repository synchronized to hosts
type Workspace struct {
	WorkspaceConfig
}

// NewWorkspace returns a new workspace
func NewWorkspace(config WorkspaceConfig) (*Workspace, error) {
	if err := config.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Workspace{WorkspaceConfig: config}, nil
}

// RepoDir returns the chef repository directory
func (w *Workspace) RepoDir() string {
	return filepath.Join(w.Dir, defaults.ChefRepoDir)
}

// NodesDir returns the node documents directory
func (w *Workspace) NodesDir() string {
	return filepath.Join(w.RepoDir(), defaults.NodesDir)
}

// Prepare creates the chef repository, fetches the cookbooks and
// writes the environment
func (w *Workspace) Prepare(ctx context.Context, descriptor *schema.Descriptor) error {
	if err := w.createRepo(ctx); err != nil {
		return trace.Wrap(err)
	}
	if err := w.fetchCookbooks(ctx); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(w.WriteEnvironment(descriptor))
}

// WriteEnvironment writes the environment document to the environments
// directory of the repository
func (w *Workspace) WriteEnvironment(descriptor *schema.Descriptor) error {
	data, err := descriptor.EnvironmentJSON()
	if err != nil {
		return trace.Wrap(err)
	}
	dir := filepath.Join(w.RepoDir(), defaults.EnvironmentsDir)
	if err := utils.MkdirAll(dir, defaults.SharedDirMask); err != nil {
		return trace.Wrap(err)
	}
	path := filepath.Join(dir, descriptor.Name+".json")
	if err := utils.WritePath(path, data, defaults.PublicFileMask); err != nil {
		return trace.Wrap(err)
	}
	w.WithField("path", path).Debug("Wrote environment.")
	return nil
}

func (w *Workspace) createRepo(ctx context.Context) error {
	if _, err := utils.IsDirectory(w.RepoDir()); trace.IsNotFound(err) {
		w.Info("Creating Chef repository.")
		if err := w.run(ctx, w.Dir, "chef", "generate", "app", defaults.ChefRepoDir); err != nil {
			return trace.Wrap(err)
		}
	}
	for _, dir := range []string{defaults.EnvironmentsDir, defaults.NodesDir} {
		if err := utils.MkdirAll(filepath.Join(w.RepoDir(), dir), defaults.SharedDirMask); err != nil {
			return trace.Wrap(err)
		}
	}
	return nil
}

func (w *Workspace) fetchCookbooks(ctx context.Context) error {
	cookbookDir := filepath.Join(w.Dir, defaults.CookbookDir)
	if _, err := utils.IsDirectory(cookbookDir); trace.IsNotFound(err) {
		w.WithField("repo", w.CookbookRepo).Info("Cloning cookbooks.")
		if err := w.run(ctx, w.Dir, "git", "clone", w.CookbookRepo, defaults.CookbookDir); err != nil {
			return trace.Wrap(err)
		}
	}
	if w.UpdateRepo {
		w.WithField("branch", w.Branch).Info("Updating cookbooks.")
		if err := w.run(ctx, cookbookDir, "git", "checkout", w.Branch); err != nil {
			return trace.Wrap(err)
		}
		if err := w.run(ctx, cookbookDir, "git", "pull", "origin", w.Branch); err != nil {
			return trace.Wrap(err)
		}
	}
	w.Info("Downloading Chef cookbooks.")
	return trace.Wrap(w.run(ctx, w.Dir, "berks", "vendor",
		"--berksfile", filepath.Join(defaults.CookbookDir, "Berksfile"),
		filepath.Join(defaults.ChefRepoDir, defaults.CookbooksDir)))
}

func (w *Workspace) run(ctx context.Context, dir string, args ...string) error {
	var out bytes.Buffer
	err := w.Runner.RunStream(ctx, &out, &out, args, utils.Dir(dir))
	if err != nil {
		return trace.Wrap(err, "%v failed: %s", args, out.String())
	}
	w.WithField("args", args).Debugf("%s", out.String())
	return nil
}
