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

package orchestrator

import (
	"context"

	"github.com/eucalyptus/calyptos/lib/agent"
	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/remote"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Bootstrapper performs the initial contact with a host the node
// documents know nothing about: it synchronizes the workspace, runs the
// agent once and collects the node document it reports
type Bootstrapper struct {
	// Driver drives the agent on hosts
	Driver Driver
	// Importer receives the reported node document.
	// It is set once the node store has been created
	Importer agent.Importer
	// FieldLogger is used for logging
	logrus.FieldLogger
}

// Bootstrap performs the initial contact with host
func (b *Bootstrapper) Bootstrap(ctx context.Context, host string) error {
	if b.Driver == nil || b.Importer == nil {
		return trace.BadParameter("bootstrapper is not configured")
	}
	logger := b.FieldLogger
	if logger == nil {
		logger = logrus.WithField(trace.Component, "bootstrap")
	}
	logger = logger.WithField(constants.FieldHost, host)
	hosts := []string{host}
	for _, a := range []struct {
		name string
		fn   func() remote.Results
	}{
		{"push", func() remote.Results { return b.Driver.Push(ctx, hosts) }},
		{"apply", func() remote.Results { return b.Driver.Apply(ctx, hosts) }},
		{"pull", func() remote.Results { return b.Driver.Pull(ctx, hosts, b.Importer) }},
	} {
		logger.Debugf("Initial %v.", a.name)
		results := a.fn()
		err := results.Err()
		if err == nil {
			continue
		}
		result, ok := results[host]
		if !ok {
			result = &remote.Result{Host: host, Error: err}
		}
		return trace.Wrap(&HostActionError{Action: "initial " + a.name, Result: result})
	}
	logger.Info("Initial bootstrap completed.")
	return nil
}
