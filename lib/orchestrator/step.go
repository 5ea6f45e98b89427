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
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/remote"
	"github.com/eucalyptus/calyptos/lib/run"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// step is a single assign, apply and collect cycle of a phase
type step struct {
	// name identifies the step
	name string
	// hosts lists the hosts the agent is applied on
	hosts []string
	// assign prepares the run lists before the agent is applied.
	// Returned host errors fail the respective hosts only
	assign func(ctx context.Context) (run.Errors, error)
	// apply lists the actions executed on hosts in order.
	// A host failing an action is excluded from the subsequent ones
	apply []action
}

// action is executed on a set of hosts
type action struct {
	name string
	fn   func(ctx context.Context, hosts []string) remote.Results
}

// assignment adds units to the run lists of hosts
type assignment struct {
	hosts []string
	units []string
}

// runStep executes the step and collects every host outcome.
// Sibling hosts are never interrupted by a failure: the step
// fails with RemoteApplyError once all hosts have completed.
func (r *phaseRun) runStep(ctx context.Context, s step) error {
	logger := r.WithField(constants.FieldStep, s.name)
	result := StepResult{
		Name:    s.name,
		Started: r.o.Clock.Now().UTC(),
		Failed:  make(map[string]error),
	}
	r.o.Progress.NextStep("%v: %v", r.result.Phase, s.name)

	if err := r.transition(StateAssigning); err != nil {
		return trace.Wrap(err)
	}
	if s.assign != nil {
		errs, err := s.assign(ctx)
		if err != nil {
			return trace.Wrap(err)
		}
		for host, err := range errs {
			logger.WithError(err).WithField(constants.FieldHost, host).Warn("Failed to assign run list.")
			result.Failed[host] = err
		}
	}

	if err := r.transition(StateApplying); err != nil {
		return trace.Wrap(err)
	}
	for _, a := range s.apply {
		hosts := healthy(s.hosts, result.Failed)
		if len(hosts) == 0 {
			break
		}
		logger.WithField("hosts", hosts).Debugf("Run %v.", a.name)
		r.collect(a.name, hosts, a.fn(ctx, hosts), result.Failed)
	}

	if err := r.transition(StateCollecting); err != nil {
		return trace.Wrap(err)
	}
	if hosts := healthy(s.hosts, result.Failed); len(hosts) != 0 {
		r.collect("pull", hosts, r.o.Driver.Pull(ctx, hosts, r.o.Store), result.Failed)
	}

	result.Hosts = union(s.hosts, result.Failed)
	result.Completed = r.o.Clock.Now().UTC()
	r.addStep(result)
	for _, host := range result.Succeeded() {
		r.o.Progress.PrintSuccess("Success on host: %v", host)
	}
	if len(result.Failed) == 0 {
		return trace.Wrap(r.sync())
	}
	for _, host := range sortedKeys(result.Failed) {
		if err := r.writeFailureLog(host, result.Failed[host]); err != nil {
			logger.WithError(err).WithField(constants.FieldHost, host).Warn("Failed to write failure log.")
		}
		r.o.Progress.PrintFailure("%v failed on %v, log available at %v",
			s.name, host, failureLogName(host))
	}
	if err := r.sync(); err != nil {
		logger.WithError(err).Warn("Failed to record step.")
	}
	return trace.Wrap(&RemoteApplyError{
		Phase:    r.result.Phase,
		Step:     s.name,
		Failures: result.Failed,
	})
}

// collect records the hosts an action has failed on
func (r *phaseRun) collect(name string, hosts []string, results remote.Results, failed map[string]error) {
	for _, host := range hosts {
		result, ok := results[host]
		if !ok {
			result = &remote.Result{
				Host:  host,
				Error: trace.NotFound("no %v result reported for %v", name, host),
			}
		}
		if result.Succeeded {
			continue
		}
		failed[host] = trace.Wrap(&HostActionError{Action: name, Result: result},
			"%v failed on %v", name, host)
	}
}

// writeFailureLog writes the diagnostic log of a failed host.
// The log has the output of the failed action if there was one
func (r *phaseRun) writeFailureLog(host string, err error) error {
	name, result := "assign", &remote.Result{Host: host, Error: err}
	if actionErr, ok := trace.Unwrap(err).(*HostActionError); ok {
		name, result = actionErr.Action, actionErr.Result
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "phase: %v\naction: %v\nhost: %v\n", r.result.Phase, name, host)
	if result.Error != nil {
		fmt.Fprintf(&buf, "error: %v\n", trace.UserMessage(result.Error))
	} else if result.ExitStatus != 0 {
		fmt.Fprintf(&buf, "exit status: %v\n", result.ExitStatus)
	}
	buf.WriteString("\n")
	buf.WriteString(result.Output)
	if result.Stderr != "" {
		buf.WriteString("\n")
		buf.WriteString(result.Stderr)
	}
	path := filepath.Join(r.o.FailureLogDir, failureLogName(host))
	r.WithFields(logrus.Fields{
		constants.FieldHost: host,
		"path":              path,
	}).Info("Write failure log.")
	return trace.Wrap(utils.WritePath(path, buf.Bytes(), defaults.SharedReadWriteMask))
}

func failureLogName(host string) string {
	return defaults.FailureLogPrefix + host + defaults.FailureLogSuffix
}

// assigner returns the assign function that clears the run lists of
// the specified hosts and then applies the assignments in order
func (o *Orchestrator) assigner(clear []string, assignments ...assignment) func(context.Context) (run.Errors, error) {
	return func(ctx context.Context) (run.Errors, error) {
		errs := make(run.Errors)
		if len(clear) != 0 {
			merge(errs, o.Store.Clear(ctx, clear))
		}
		for _, a := range assignments {
			hosts := healthy(a.hosts, errs)
			if len(hosts) == 0 {
				continue
			}
			o.WithFields(logrus.Fields{
				"hosts": hosts,
				"units": a.units,
			}).Debug("Assign run list.")
			merge(errs, o.Store.Assign(ctx, hosts, a.units))
		}
		return errs, nil
	}
}

// converge returns the default apply actions: synchronize the workspace
// and run the agent
func (o *Orchestrator) converge() []action {
	return []action{
		{name: "push", fn: o.Driver.Push},
		{name: "apply", fn: o.Driver.Apply},
	}
}

func merge(dst, src run.Errors) {
	for host, err := range src {
		if _, ok := dst[host]; !ok {
			dst[host] = err
		}
	}
}

// healthy returns hosts without failures preserving the order
func healthy(hosts []string, failed map[string]error) []string {
	var out []string
	for _, host := range hosts {
		if _, ok := failed[host]; !ok {
			out = append(out, host)
		}
	}
	return out
}

// union returns hosts extended with the failed hosts not among them
func union(hosts []string, failed map[string]error) []string {
	out := append([]string{}, hosts...)
	seen := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		seen[host] = struct{}{}
	}
	for _, host := range sortedKeys(failed) {
		if _, ok := seen[host]; !ok {
			out = append(out, host)
		}
	}
	return out
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
