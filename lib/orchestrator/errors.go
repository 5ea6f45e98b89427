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
	"fmt"
	"sort"
	"strings"

	"github.com/eucalyptus/calyptos/lib/remote"

	"github.com/gravitational/trace"
)

// RemoteApplyError is returned when a step has failed on some hosts.
// The step was still completed on the remaining hosts.
type RemoteApplyError struct {
	// Phase is the failed phase
	Phase Phase
	// Step is the failed step
	Step string
	// Failures maps failed hosts to their errors
	Failures map[string]error
}

// Error returns the error message
func (e *RemoteApplyError) Error() string {
	var details []string
	for _, host := range e.Hosts() {
		details = append(details, fmt.Sprintf("%v: %v", host, trace.UserMessage(e.Failures[host])))
	}
	return fmt.Sprintf("%v step %q failed on %v host(s):\n%v",
		e.Phase, e.Step, len(e.Failures), strings.Join(details, "\n"))
}

// Hosts returns the failed hosts in sorted order
func (e *RemoteApplyError) Hosts() []string {
	hosts := make([]string, 0, len(e.Failures))
	for host := range e.Failures {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// IsRemoteApply returns true if err is a RemoteApplyError
func IsRemoteApply(err error) bool {
	_, ok := trace.Unwrap(err).(*RemoteApplyError)
	return ok
}

// HostActionError is returned when an agent action has failed on a host.
// It keeps the output the action has captured on the host
type HostActionError struct {
	// Action names the failed action
	Action string
	// Result is the outcome of the action on the host
	Result *remote.Result
}

// Error returns the error message
func (e *HostActionError) Error() string {
	if e.Result.Error != nil {
		return fmt.Sprintf("%v failed: %v", e.Action, trace.UserMessage(e.Result.Error))
	}
	return fmt.Sprintf("%v failed with exit status %v", e.Action, e.Result.ExitStatus)
}

// BootstrapIncompleteError is returned when the primary controller has not
// reported the cloud keys the bootstrap phase produces
type BootstrapIncompleteError struct {
	// Host is the primary controller
	Host string
	// Missing lists the missing keys
	Missing []string
}

// Error returns the error message
func (e *BootstrapIncompleteError) Error() string {
	return fmt.Sprintf("unable to find cloud keys %v in the attributes of %v, "+
		"re-run the bootstrap phase and ensure that it is successful",
		strings.Join(e.Missing, ", "), e.Host)
}

// IsBootstrapIncomplete returns true if err is a BootstrapIncompleteError
func IsBootstrapIncomplete(err error) bool {
	_, ok := trace.Unwrap(err).(*BootstrapIncompleteError)
	return ok
}
