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

// Package agent drives the chef configuration agent on deployment hosts
package agent

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/remote"
	"github.com/eucalyptus/calyptos/lib/run"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Importer stores node documents reported by the agent
type Importer interface {
	// Import stores the document of the named node
	Import(name string, data []byte) error
}

// Config defines the agent driver configuration
type Config struct {
	// Executor runs commands on hosts
	Executor remote.Executor
	// Environment is the chef environment name
	Environment string
	// WorkDir is the local workspace synchronized to hosts
	WorkDir string
	// RemoteDir is the workspace location on hosts
	RemoteDir string
	// PublicKeyPath is the public key installed on hosts
	PublicKeyPath string
	// LocalHostname is the hostname of the machine running the deployer.
	// Node documents are not pulled from a host with the same name since
	// the workspace already has them.
	LocalHostname string
	// Parallel is the number of hosts driven concurrently
	Parallel int
	// FieldLogger is used for logging
	logrus.FieldLogger
}

// CheckAndSetDefaults validates the config and sets defaults
func (c *Config) CheckAndSetDefaults() error {
	if c.Executor == nil {
		return trace.BadParameter("missing Executor")
	}
	if c.Environment == "" {
		return trace.BadParameter("missing Environment")
	}
	if c.WorkDir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return trace.ConvertSystemError(err)
		}
		c.WorkDir = dir
	}
	if c.RemoteDir == "" {
		c.RemoteDir = path.Join(defaults.RemoteRootDir, filepath.Base(c.WorkDir))
	}
	if c.PublicKeyPath == "" {
		c.PublicKeyPath = defaults.SSHPublicKeyPath()
	}
	if c.LocalHostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return trace.ConvertSystemError(err)
		}
		c.LocalHostname = hostname
	}
	if c.Parallel == 0 {
		c.Parallel = defaults.ParallelHosts
	}
	if c.FieldLogger == nil {
		c.FieldLogger = logrus.WithField(trace.Component, "agent")
	}
	return nil
}

// Agent drives the configuration agent on hosts
type Agent struct {
	Config
}

// New returns a new agent driver
func New(config Config) (*Agent, error) {
	if err := config.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Agent{Config: config}, nil
}

// SyncTrust installs the local public key in the authorized keys of the
// remote user on every host unless it is already present
func (a *Agent) SyncTrust(ctx context.Context, hosts []string) (remote.Results, error) {
	key, err := utils.ReadPath(a.PublicKeyPath)
	if err != nil {
		return nil, trace.Wrap(err, "failed to read public key")
	}
	pubKey := strings.TrimSpace(string(key))
	if strings.Contains(pubKey, "'") {
		return nil, trace.BadParameter("unexpected quote in public key %v", a.PublicKeyPath)
	}
	a.Info("Syncing SSH keys with the system under deployment.")
	script := fmt.Sprintf("mkdir -p ~/.ssh && chmod 700 ~/.ssh && "+
		"if ! grep -q -F '%[1]v' ~/.ssh/authorized_keys 2>/dev/null; then "+
		"echo '%[1]v' >> ~/.ssh/authorized_keys; fi", pubKey)
	return a.Executor.Execute(ctx, hosts, remote.Command{Script: script}), nil
}

// Push synchronizes the local workspace to every host
func (a *Agent) Push(ctx context.Context, hosts []string) remote.Results {
	return a.Executor.Push(ctx, hosts, a.WorkDir, a.RemoteDir)
}

// Install installs the pinned agent version on the hosts that do not have it
func (a *Agent) Install(ctx context.Context, hosts []string) remote.Results {
	script := fmt.Sprintf("chef-client -v >/dev/null 2>&1 || "+
		"(curl -L %v | bash -s -- -v %v)", defaults.ChefInstallURL, defaults.ChefVersion)
	return a.Executor.Execute(ctx, hosts, remote.Command{Script: script})
}

// Apply runs the agent in local mode on every host
func (a *Agent) Apply(ctx context.Context, hosts []string) remote.Results {
	return a.Executor.Execute(ctx, hosts, remote.Command{
		Script:  fmt.Sprintf("chef-client -z -E '%v'", a.Environment),
		Dir:     path.Join(a.RemoteDir, defaults.ChefRepoDir),
		Timeout: defaults.ApplyTimeout,
	})
}

// Pull fetches the node document the agent wrote on every host and
// passes it to importer
func (a *Agent) Pull(ctx context.Context, hosts []string, importer Importer) remote.Results {
	hostnames := a.Executor.Execute(ctx, hosts, remote.Command{Script: "hostname"})
	var mu sync.Mutex
	results := make(remote.Results, len(hosts))
	run.ForEach(ctx, hosts, a.Parallel, func(host string) error {
		result, ok := hostnames[host]
		if !ok {
			result = &remote.Result{Host: host, Error: trace.NotFound("no hostname reported by %v", host)}
		}
		if result.Succeeded {
			result = a.pull(ctx, host, strings.TrimSpace(result.Output), importer)
		}
		mu.Lock()
		results[host] = result
		mu.Unlock()
		return nil
	})
	return results
}

func (a *Agent) pull(ctx context.Context, host, hostname string, importer Importer) *remote.Result {
	result := &remote.Result{Host: host, Succeeded: true}
	if hostname == a.LocalHostname {
		a.WithField(constants.FieldHost, host).Debug("Skip pulling node document from the local host.")
		return result
	}
	if err := a.fetch(ctx, host, hostname, importer); err != nil {
		result.Succeeded = false
		result.ExitStatus = -1
		result.Error = trace.Wrap(err)
	}
	return result
}

func (a *Agent) fetch(ctx context.Context, host, hostname string, importer Importer) error {
	nodePath := path.Join(a.RemoteDir, defaults.ChefRepoDir, defaults.NodesDir, hostname+".json")
	data, err := a.Executor.Fetch(ctx, host, nodePath)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := importer.Import(hostname, data); err != nil {
		return trace.Wrap(err)
	}
	a.WithFields(logrus.Fields{
		constants.FieldHost: host,
		constants.FieldNode: hostname,
	}).Debug("Pulled node document.")
	return nil
}
