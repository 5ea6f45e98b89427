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
	"fmt"
	"strings"

	"github.com/eucalyptus/calyptos/lib/checks"
	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/defaults"

	"gopkg.in/alecthomas/kingpin.v2"
)

// RegisterCommands registers all calyptos tool flags, arguments and subcommands
func RegisterCommands(app *kingpin.Application) Application {
	g := Application{
		Application: app,
	}

	g.Debug = app.Flag("debug", "Enable debug mode.").Bool()
	g.Environment = app.Flag("environment", "Path to the topology descriptor.").Short('e').Default(defaults.EnvironmentFile).String()
	g.ConfigFile = app.Flag("config", "Path to the deployer configuration file.").Short('c').Default(defaults.ConfigFile).String()
	g.User = app.Flag("user", "Remote user to connect as.").Short('u').Default(defaults.SSHUser).String()
	g.Password = app.Flag("password", "Password of the remote user.").Short('p').Envar(defaults.PasswordEnvVar).String()
	g.Identity = app.Flag("identity", "Path to the SSH private key. Defaults to ~/.ssh/id_rsa.").Short('i').String()
	g.StateDir = app.Flag("state-dir", "Local state directory with the operation journal. Defaults to ~/.calyptos.").String()
	g.LogFile = app.Flag("log-file", "Path to the log file.").Default(defaults.LogFile).String()
	g.Parallel = app.Flag("parallel", "Maximum number of hosts driven concurrently.").Default(fmt.Sprint(defaults.ParallelHosts)).Int()
	g.MetricsFile = app.Flag("metrics-file", "Write phase metrics in Prometheus text format to this file.").String()
	g.NoUpdateRepo = app.Flag("no-update-repo", "Do not check out and pull the cookbook branch.").Bool()
	g.Branch = app.Flag("branch", "Cookbook branch, overrides the configuration file.").Short('b').String()
	g.CookbookRepo = app.Flag("cookbook-repo", "Cookbook repository, overrides the configuration file.").String()

	g.PrepareCmd.CmdClause = app.Command("prepare", "Install the configuration agent and register every host.")
	g.BootstrapCmd.CmdClause = app.Command("bootstrap", "Bring up the base services in dependency order.")
	g.ProvisionCmd.CmdClause = app.Command("provision", "Deploy the cloud on every host.")
	g.UninstallCmd.CmdClause = app.Command("uninstall", "Remove the cloud from every host and deregister the nodes.")

	g.ValidateCmd.CmdClause = app.Command("validate", "Validate the topology and the hosts before deployment.")
	g.ValidateCmd.Checks = g.ValidateCmd.Arg("validator", fmt.Sprintf("Validators to run: %v. Runs all if unspecified.",
		strings.Join(checks.Names(checks.KindValidator), ", "))).Enums(checks.Names(checks.KindValidator)...)

	g.DebugCmd.CmdClause = app.Command("debug", "Run diagnostics on the deployed hosts.")
	g.DebugCmd.Checks = g.DebugCmd.Arg("debugger", fmt.Sprintf("Debuggers to run: %v. Runs all if unspecified.",
		strings.Join(checks.Names(checks.KindDebugger), ", "))).Enums(checks.Names(checks.KindDebugger)...)

	g.RolesCmd.CmdClause = app.Command("roles", "Display the hosts of every role of the topology.")

	g.HistoryCmd.CmdClause = app.Command("history", "Display the phases run against the environment.")
	g.HistoryCmd.Limit = g.HistoryCmd.Flag("limit", "Maximum number of operations to display, all if 0.").Short('n').Default("0").Int()

	g.VersionCmd.CmdClause = app.Command("version", "Display the calyptos version.")
	g.VersionCmd.Output = g.VersionCmd.Flag("output", "Output format: text or json.").Short('o').Default(constants.EncodingText).Enum(constants.EncodingText, constants.EncodingJSON)

	return g
}
