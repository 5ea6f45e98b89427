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

// Package remote executes commands and transfers files on deployment hosts
package remote

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eucalyptus/calyptos/lib/defaults"

	"github.com/gravitational/trace"
)

// Executor runs commands on a set of hosts
type Executor interface {
	// Execute runs cmd on every host concurrently and returns a result per host
	Execute(ctx context.Context, hosts []string, cmd Command) Results
	// Push synchronizes the contents of localDir to remoteDir on every host
	Push(ctx context.Context, hosts []string, localDir, remoteDir string) Results
	// Fetch returns the contents of the file at path on host
	Fetch(ctx context.Context, host, path string) ([]byte, error)
	// Close releases the connections
	Close() error
}

// Session defines the credentials and connection settings used for
// all remote operations
type Session struct {
	// User is the remote user
	User string
	// Password is the optional password of the remote user
	Password string
	// PrivateKeyPath is the path to the private key
	PrivateKeyPath string
	// Port is the SSH port
	Port int
	// Timeout bounds a single remote command
	Timeout time.Duration
	// DialTimeout bounds establishing a connection
	DialTimeout time.Duration
}

// CheckAndSetDefaults validates the session and sets defaults
func (s *Session) CheckAndSetDefaults() error {
	if s.User == "" {
		s.User = defaults.SSHUser
	}
	if s.Port == 0 {
		s.Port = defaults.SSHPort
	}
	if s.Timeout == 0 {
		s.Timeout = defaults.CommandTimeout
	}
	if s.DialTimeout == 0 {
		s.DialTimeout = defaults.SSHDialTimeout
	}
	if s.PrivateKeyPath == "" {
		s.PrivateKeyPath = defaults.SSHPrivateKeyPath()
	}
	if s.Port < 0 || s.Port > 65535 {
		return trace.BadParameter("invalid SSH port %v", s.Port)
	}
	return nil
}

// Address returns the dial address of host
func (s Session) Address(host string) string {
	return fmt.Sprintf("%v:%v", host, s.Port)
}

// String returns the session description with the password redacted
func (s Session) String() string {
	return fmt.Sprintf("Session(user=%v, key=%v, port=%v)", s.User, s.PrivateKeyPath, s.Port)
}

// Command is a command executed on remote hosts
type Command struct {
	// Script is the shell script to run
	Script string
	// Dir is the optional working directory
	Dir string
	// Timeout optionally overrides the session command timeout
	Timeout time.Duration
}

// String returns the command line as executed on the host
func (c Command) String() string {
	if c.Dir == "" {
		return c.Script
	}
	return fmt.Sprintf("cd %v && %v", c.Dir, c.Script)
}

// Result is the outcome of a remote operation on a single host
type Result struct {
	// Host is the host address
	Host string
	// Succeeded is true if the operation has completed successfully
	Succeeded bool
	// ExitStatus is the command exit status or -1 if the command
	// did not complete
	ExitStatus int
	// Output is the captured standard output
	Output string
	// Stderr is the captured standard error
	Stderr string
	// Error is the operation error if it failed
	Error error
}

// Results maps hosts to operation results
type Results map[string]*Result

// Hosts returns all hosts in sorted order
func (r Results) Hosts() []string {
	hosts := make([]string, 0, len(r))
	for host := range r {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// Failed returns the hosts the operation has failed on in sorted order
func (r Results) Failed() []string {
	var hosts []string
	for _, host := range r.Hosts() {
		if !r[host].Succeeded {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// Err returns an aggregate of all host errors or nil
func (r Results) Err() error {
	var errors []error
	for _, host := range r.Failed() {
		err := r[host].Error
		if err == nil {
			err = trace.Errorf("operation failed")
		}
		errors = append(errors, trace.Wrap(err, "host %v", host))
	}
	return trace.NewAggregate(errors...)
}
