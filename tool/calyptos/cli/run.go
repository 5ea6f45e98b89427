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
	"os"

	"github.com/eucalyptus/calyptos/lib/orchestrator"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField(trace.Component, "cli")

// Run parses CLI arguments and executes an appropriate calyptos command
func Run(g Application) error {
	cmd, err := g.Parse(os.Args[1:])
	if err != nil {
		return trace.Wrap(err)
	}
	InitAndCheck(g)
	log.Debugf("Executing: %v.", os.Args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	utils.WatchTerminationSignals(ctx, cancel, log)

	switch cmd {
	case g.VersionCmd.FullCommand():
		return printVersion(os.Stdout, *g.VersionCmd.Output)
	case g.RolesCmd.FullCommand():
		return printRoles(os.Stdout, *g.Environment)
	case g.HistoryCmd.FullCommand():
		return printHistory(os.Stdout, *g.StateDir, *g.HistoryCmd.Limit)
	case g.ValidateCmd.FullCommand():
		return validate(ctx, g, *g.ValidateCmd.Checks)
	case g.DebugCmd.FullCommand():
		return debug(ctx, g, *g.DebugCmd.Checks)
	}

	env, err := newEnvironment(g)
	if err != nil {
		return trace.Wrap(err)
	}
	defer env.Close()

	switch cmd {
	case g.PrepareCmd.FullCommand():
		return runPhase(ctx, g, env, orchestrator.PhasePrepare)
	case g.BootstrapCmd.FullCommand():
		return runPhase(ctx, g, env, orchestrator.PhaseBootstrap)
	case g.ProvisionCmd.FullCommand():
		return runPhase(ctx, g, env, orchestrator.PhaseProvision)
	case g.UninstallCmd.FullCommand():
		return runPhase(ctx, g, env, orchestrator.PhaseUninstall)
	}

	return trace.NotFound("unknown command %v", cmd)
}

// InitAndCheck initializes the CLI application according to the provided flags
func InitAndCheck(g Application) {
	trace.SetDebug(*g.Debug)
	level := logrus.InfoLevel
	if *g.Debug {
		level = logrus.DebugLevel
	}
	utils.InitLogging(level, *g.LogFile)
}
