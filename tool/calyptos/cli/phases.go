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

	"github.com/eucalyptus/calyptos/lib/orchestrator"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
)

// runPhase prepares the workspace and runs the specified deployment phase
func runPhase(ctx context.Context, g Application, env *Environment, phase orchestrator.Phase) (err error) {
	progress := utils.NewConsoleProgress(fmt.Sprintf("%v %v", phase, env.Descriptor.Name), os.Stdout)
	defer func() {
		progress.Stop(err)
	}()
	defer writeMetrics(g, env)

	if phase == orchestrator.PhasePrepare {
		progress.NextStep("Preparing the local chef repository")
		err = env.Workspace.Prepare(ctx, env.Descriptor)
	} else {
		err = env.Workspace.WriteEnvironment(env.Descriptor)
	}
	if err != nil {
		return trace.Wrap(err)
	}

	o, err := env.Orchestrator(progress)
	if err != nil {
		return trace.Wrap(err)
	}
	var result *orchestrator.PhaseResult
	switch phase {
	case orchestrator.PhasePrepare:
		result, err = o.Prepare(ctx)
	case orchestrator.PhaseBootstrap:
		result, err = o.Bootstrap(ctx)
	case orchestrator.PhaseProvision:
		result, err = o.Provision(ctx)
	case orchestrator.PhaseUninstall:
		result, err = o.Uninstall(ctx)
	default:
		return trace.BadParameter("unknown phase %q", phase)
	}
	if result != nil {
		log.WithField("operation", result.OperationID).Infof("Phase %v completed in state %v.",
			result.Phase, result.State)
		if failed := result.FailedHosts(); len(failed) != 0 {
			progress.PrintWarn("Failed hosts: %v", failed)
		}
	}
	return trace.Wrap(err)
}

func writeMetrics(g Application, env *Environment) {
	if *g.MetricsFile == "" {
		return
	}
	if err := env.Metrics.WriteTextfile(*g.MetricsFile); err != nil {
		log.WithError(err).Warn("Failed to write metrics.")
	}
}
