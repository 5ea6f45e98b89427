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

// Package storage defines the operation journal.
// Implementations are supposed to be dumb - no business logic,
// just storage logic.
package storage

import (
	"sort"
	"time"

	"github.com/gravitational/trace"
)

// Backend is the operation journal backend
type Backend interface {
	Operations
	// Close releases backend resources
	Close() error
}

// Operations collection records every phase run of the deployer
type Operations interface {
	// CreateOperation creates a new operation entry
	CreateOperation(Operation) (*Operation, error)
	// GetOperation returns the operation identified by id
	GetOperation(id string) (*Operation, error)
	// GetOperations returns all operations sorted by time
	// (latest operations come first)
	GetOperations() ([]Operation, error)
	// UpdateOperation updates an existing operation
	UpdateOperation(Operation) (*Operation, error)
}

const (
	// OperationStatePending is the state of a phase that has not started
	OperationStatePending = "PENDING"
	// OperationStateAssigning is the state of a phase assigning run lists
	OperationStateAssigning = "ASSIGNING"
	// OperationStateApplying is the state of a phase applying run lists on hosts
	OperationStateApplying = "APPLYING"
	// OperationStateCollecting is the state of a phase collecting host outcomes
	OperationStateCollecting = "COLLECTING"
	// OperationStateSucceeded is the terminal state of a successful phase
	OperationStateSucceeded = "SUCCEEDED"
	// OperationStateFailed is the terminal state of a failed phase
	OperationStateFailed = "FAILED"
)

// Operation is a single run of a deployment phase
type Operation struct {
	// ID is a unique operation ID
	ID string `json:"id"`
	// Phase is the name of the phase, e.g. bootstrap
	Phase string `json:"phase"`
	// Environment is the name of the deployed environment
	Environment string `json:"environment"`
	// State is the current phase state
	State string `json:"state"`
	// Created is a time when this operation was created
	Created time.Time `json:"created"`
	// Updated is a time when this operation was last updated
	Updated time.Time `json:"updated"`
	// Steps lists the completed steps of the phase
	Steps []OperationStep `json:"steps,omitempty"`
	// Error is the user-facing error message if the phase has failed
	Error string `json:"error,omitempty"`
}

// Check validates this operation
func (o *Operation) Check() error {
	if o.Phase == "" {
		return trace.BadParameter("missing operation phase")
	}
	if o.Environment == "" {
		return trace.BadParameter("missing operation environment")
	}
	return nil
}

// IsCompleted returns true if the operation has reached a terminal state
func (o Operation) IsCompleted() bool {
	return o.State == OperationStateSucceeded || o.State == OperationStateFailed
}

// Hosts returns all hosts touched by the operation in sorted order
func (o Operation) Hosts() []string {
	seen := make(map[string]struct{})
	for _, step := range o.Steps {
		for _, host := range step.Hosts {
			seen[host] = struct{}{}
		}
	}
	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// FailedHosts returns the hosts that failed in any step in sorted order
func (o Operation) FailedHosts() []string {
	seen := make(map[string]struct{})
	for _, step := range o.Steps {
		for host := range step.Failed {
			seen[host] = struct{}{}
		}
	}
	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// OperationStep is the outcome of a single step of a phase
type OperationStep struct {
	// Name identifies the step
	Name string `json:"name"`
	// Hosts lists the hosts the step was applied to
	Hosts []string `json:"hosts,omitempty"`
	// Failed maps failed hosts to their error messages
	Failed map[string]string `json:"failed,omitempty"`
	// Started is the time the step has started
	Started time.Time `json:"started"`
	// Completed is the time the step has completed
	Completed time.Time `json:"completed"`
}

// Duration returns the step duration
func (s OperationStep) Duration() time.Duration {
	return s.Completed.Sub(s.Started)
}
