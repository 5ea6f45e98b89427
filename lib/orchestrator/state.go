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
	"sort"
	"time"

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/storage"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Phase names a deployment phase
type Phase string

const (
	// PhasePrepare installs the agent and collects node documents
	PhasePrepare Phase = "prepare"
	// PhaseBootstrap applies the foundational units in dependency order
	PhaseBootstrap Phase = "bootstrap"
	// PhaseProvision applies the full recipe table
	PhaseProvision Phase = "provision"
	// PhaseUninstall tears the deployment down
	PhaseUninstall Phase = "uninstall"
)

// PhaseState is the state of a phase run
type PhaseState string

const (
	// StatePending is the initial state
	StatePending PhaseState = storage.OperationStatePending
	// StateAssigning is the state while run lists are assigned
	StateAssigning PhaseState = storage.OperationStateAssigning
	// StateApplying is the state while the agent runs on hosts
	StateApplying PhaseState = storage.OperationStateApplying
	// StateCollecting is the state while host outcomes are collected
	StateCollecting PhaseState = storage.OperationStateCollecting
	// StateSucceeded is the terminal state of a successful phase
	StateSucceeded PhaseState = storage.OperationStateSucceeded
	// StateFailed is the terminal state of a failed phase
	StateFailed PhaseState = storage.OperationStateFailed
)

// IsTerminal returns true if no transitions are possible from this state
func (s PhaseState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// transitions lists legal state transitions.
// Collecting loops back to assigning for the next step of a phase.
var transitions = map[PhaseState][]PhaseState{
	StatePending:    {StateAssigning, StateFailed},
	StateAssigning:  {StateApplying, StateFailed},
	StateApplying:   {StateCollecting, StateFailed},
	StateCollecting: {StateAssigning, StateSucceeded, StateFailed},
}

func checkTransition(from, to PhaseState) error {
	if from.IsTerminal() {
		return trace.BadParameter("phase has already completed in state %v", from)
	}
	for _, state := range transitions[from] {
		if state == to {
			return nil
		}
	}
	return trace.BadParameter("illegal phase state transition %v -> %v", from, to)
}

// PhaseResult is the outcome of a phase run
type PhaseResult struct {
	// OperationID is the journal entry of the run
	OperationID string
	// Phase is the phase
	Phase Phase
	// State is the final phase state
	State PhaseState
	// Steps lists the executed steps in order
	Steps []StepResult
}

// FailedHosts returns the hosts that failed in any step in sorted order
func (r PhaseResult) FailedHosts() []string {
	failed := make(map[string]struct{})
	for _, step := range r.Steps {
		for host := range step.Failed {
			failed[host] = struct{}{}
		}
	}
	return sortedSet(failed)
}

// SucceededHosts returns the hosts that did not fail in any step
// in sorted order
func (r PhaseResult) SucceededHosts() []string {
	failed := make(map[string]struct{})
	for _, host := range r.FailedHosts() {
		failed[host] = struct{}{}
	}
	succeeded := make(map[string]struct{})
	for _, step := range r.Steps {
		for _, host := range step.Hosts {
			if _, ok := failed[host]; !ok {
				succeeded[host] = struct{}{}
			}
		}
	}
	return sortedSet(succeeded)
}

// Step returns the result of the named step
func (r PhaseResult) Step(name string) (*StepResult, error) {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i], nil
		}
	}
	return nil, trace.NotFound("step %q was not executed", name)
}

// StepResult is the outcome of a single step
type StepResult struct {
	// Name identifies the step
	Name string
	// Hosts lists the hosts the step was applied to
	Hosts []string
	// Failed maps failed hosts to their errors
	Failed map[string]error
	// Started is the time the step has started
	Started time.Time
	// Completed is the time the step has completed
	Completed time.Time
}

// Succeeded returns the hosts the step has succeeded on
func (r StepResult) Succeeded() []string {
	var hosts []string
	for _, host := range r.Hosts {
		if _, ok := r.Failed[host]; !ok {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// phaseRun tracks the state of a single phase run
type phaseRun struct {
	logrus.FieldLogger
	o      *Orchestrator
	result *PhaseResult
	op     *storage.Operation
}

func (o *Orchestrator) startPhase(phase Phase) (*phaseRun, error) {
	r := &phaseRun{
		o: o,
		result: &PhaseResult{
			Phase: phase,
			State: StatePending,
		},
	}
	if o.Journal != nil {
		op, err := o.Journal.CreateOperation(storage.Operation{
			Phase:       string(phase),
			Environment: o.environment(),
			State:       string(StatePending),
			Created:     o.Clock.Now().UTC(),
		})
		if err != nil {
			return nil, trace.Wrap(err)
		}
		r.op = op
		r.result.OperationID = op.ID
	}
	r.FieldLogger = o.WithFields(logrus.Fields{
		constants.FieldPhase:       phase,
		constants.FieldOperationID: r.result.OperationID,
	})
	r.Info("Start phase.")
	return r, nil
}

func (r *phaseRun) transition(to PhaseState) error {
	if err := checkTransition(r.result.State, to); err != nil {
		return trace.Wrap(err)
	}
	r.Debugf("%v -> %v.", r.result.State, to)
	r.result.State = to
	if r.op != nil {
		r.op.State = string(to)
	}
	return trace.Wrap(r.sync())
}

func (r *phaseRun) addStep(step StepResult) {
	r.result.Steps = append(r.result.Steps, step)
	r.o.Metrics.StepCompleted(string(r.result.Phase), step.Name,
		step.Completed.Sub(step.Started), len(step.Succeeded()), len(step.Failed))
	if r.op == nil {
		return
	}
	failed := make(map[string]string, len(step.Failed))
	for host, err := range step.Failed {
		failed[host] = trace.UserMessage(err)
	}
	r.op.Steps = append(r.op.Steps, storage.OperationStep{
		Name:      step.Name,
		Hosts:     step.Hosts,
		Failed:    failed,
		Started:   step.Started,
		Completed: step.Completed,
	})
}

// finish moves the phase to a terminal state depending on err
func (r *phaseRun) finish(err error) (*PhaseResult, error) {
	state := StateSucceeded
	if err != nil {
		state = StateFailed
		if r.op != nil {
			r.op.Error = trace.UserMessage(err)
		}
	}
	if transitionErr := r.transition(state); transitionErr != nil {
		r.WithError(transitionErr).Warn("Failed to record phase state.")
		if err == nil {
			err = transitionErr
		}
		r.result.State = StateFailed
	}
	r.o.Metrics.PhaseCompleted(string(r.result.Phase), string(r.result.State))
	if err != nil {
		r.WithError(err).Warn("Phase failed.")
		return r.result, trace.Wrap(err)
	}
	r.Info("Phase completed.")
	return r.result, nil
}

func (r *phaseRun) sync() error {
	if r.op == nil {
		return nil
	}
	op, err := r.o.Journal.UpdateOperation(*r.op)
	if err != nil {
		return trace.Wrap(err)
	}
	r.op = op
	return nil
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
