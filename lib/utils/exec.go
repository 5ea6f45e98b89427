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

package utils

import (
	"context"
	"io"
	"os/exec"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// CommandOptionSetter defines a type for a functional option setter for exec.Cmd
type CommandOptionSetter func(cmd *exec.Cmd)

// Dir sets the command's working dir
func Dir(dir string) CommandOptionSetter {
	return func(cmd *exec.Cmd) {
		cmd.Dir = dir
	}
}

// Runner is the default CommandRunner
var Runner CommandRunner = CommandRunnerFunc(RunStream)

// CommandRunner abstracts local command execution.
// The command is given with args
type CommandRunner interface {
	// RunStream executes a command specified with args and streams
	// output to stdout/stderr using ctx for cancellation
	RunStream(ctx context.Context, stdout, stderr io.Writer, args []string, opts ...CommandOptionSetter) error
}

// RunStream invokes r with the specified arguments.
// Implements CommandRunner
func (r CommandRunnerFunc) RunStream(ctx context.Context, stdout, stderr io.Writer, args []string, opts ...CommandOptionSetter) error {
	return r(ctx, stdout, stderr, args, opts...)
}

// CommandRunnerFunc is the wrapper that allows standalone functions
// to act as CommandRunners
type CommandRunnerFunc func(ctx context.Context, stdout, stderr io.Writer, args []string, opts ...CommandOptionSetter) error

// RunStream executes a command specified with args and streams output to w
func RunStream(ctx context.Context, stdout, stderr io.Writer, args []string, opts ...CommandOptionSetter) error {
	if len(args) == 0 {
		return trace.BadParameter("missing command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	for _, opt := range opts {
		opt(cmd)
	}
	log.WithField("cmd", cmd.Args).Debug("Execute.")
	if err := cmd.Start(); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(cmd.Wait())
}
