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
	"context"
	"fmt"
	"os"

	"github.com/eucalyptus/calyptos/lib/checks"
	"github.com/eucalyptus/calyptos/tool/common"

	"github.com/gravitational/trace"
)

// validate runs validators against the topology
func validate(ctx context.Context, g Application, names []string) error {
	topology, err := loadTopology(*g.Environment)
	if err != nil {
		return trace.Wrap(err)
	}
	common.PrintHeader(fmt.Sprintf("Validating %v", topology.Descriptor.Name))
	validators, err := checks.New(checks.KindValidator, checks.Config{
		Out:      os.Stdout,
		Parallel: *g.Parallel,
	}, names...)
	if err != nil {
		return trace.Wrap(err)
	}
	_, err = checks.Run(ctx, os.Stdout, validators, topology.Graph, topology.Descriptor)
	return trace.Wrap(err)
}

// debug runs debuggers against the hosts of the topology
func debug(ctx context.Context, g Application, names []string) error {
	topology, err := loadTopology(*g.Environment)
	if err != nil {
		return trace.Wrap(err)
	}
	executor, err := newExecutor(g)
	if err != nil {
		return trace.Wrap(err)
	}
	defer executor.Close()
	common.PrintHeader(fmt.Sprintf("Debugging %v", topology.Descriptor.Name))
	debuggers, err := checks.New(checks.KindDebugger, checks.Config{
		Executor: executor,
		Out:      os.Stdout,
		Parallel: *g.Parallel,
	}, names...)
	if err != nil {
		return trace.Wrap(err)
	}
	_, err = checks.Run(ctx, os.Stdout, debuggers, topology.Graph, topology.Descriptor)
	return trace.Wrap(err)
}
