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


// Package checks implements read-only validators and debuggers that
// verify a topology and its hosts before or after deployment
package checks

import (
	"context"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/remote"
	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/schema"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Checker defines a single validator or debugger.
// Checkers never modify the node state.
type Checker interface {
	// Name returns the checker name as used on the command line
	Name() string
	// Check runs the checker against the resolved graph and the descriptor
	// and returns the outcome tally
	Check(ctx context.Context, graph *roles.Graph, descriptor *schema.Descriptor) (Tally, error)
}

// Kind distinguishes validators from debuggers
type Kind string

const (
	// KindValidator checks the topology and reachability before deployment
	KindValidator Kind = "VALIDATION"
	// KindDebugger inspects deployed hosts
	KindDebugger Kind = "DEBUG"
)

// Config is the configuration shared by all checkers
type Config struct {
	// Executor runs diagnostic commands on hosts
	Executor remote.Executor
	// Runner runs local commands
	Runner utils.CommandRunner
	// Client is used to request repository URLs
	Client *http.Client
	// Out receives check outcomes
	Out io.Writer
	// Requirements lists minimum host requirements
	Requirements Requirements
	// RetryInterval is the interval between URL requests
	RetryInterval time.Duration
	// RetryAttempts is the number of URL request retries
	RetryAttempts int
	// Parallel limits the number of hosts checked concurrently
	Parallel int
	// FieldLogger is used for logging
	logrus.FieldLogger
}

// CheckAndSetDefaults validates the configuration and sets defaults
func (c *Config) CheckAndSetDefaults() error {
	if c.Runner == nil {
		c.Runner = utils.Runner
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: defaults.URLRequestTimeout}
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Requirements == (Requirements{}) {
		c.Requirements = DefaultRequirements()
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = defaults.URLRetryInterval
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = defaults.URLRetryAttempts
	}
	if c.Parallel <= 0 {
		c.Parallel = defaults.ParallelHosts
	}
	if c.FieldLogger == nil {
		c.FieldLogger = logrus.WithField(trace.Component, "checks")
	}
	return nil
}

type registration struct {
	name string
	kind Kind
	new  func(Config) Checker
}

var registry = []registration{
	{name: "topology", kind: KindValidator, new: func(c Config) Checker { return &topology{Config: c} }},
	{name: "vpc", kind: KindValidator, new: func(c Config) Checker { return &vpc{Config: c} }},
	{name: "repos", kind: KindValidator, new: func(c Config) Checker { return &repos{Config: c} }},
	{name: "pinghosts", kind: KindValidator, new: func(c Config) Checker { return &pingHosts{Config: c} }},
	{name: "storage", kind: KindDebugger, new: func(c Config) Checker { return &storageCheck{Config: c} }},
	{name: "compute", kind: KindDebugger, new: func(c Config) Checker { return &computeCheck{Config: c} }},
	{name: "networking", kind: KindDebugger, new: func(c Config) Checker { return &networkingCheck{Config: c} }},
}

// Names returns the names of all checkers of the given kind
// in registration order
func Names(kind Kind) (names []string) {
	for _, r := range registry {
		if r.kind == kind {
			names = append(names, r.name)
		}
	}
	return names
}

// New returns the checkers of the given kind with the specified names.
// All checkers of the kind are returned if no names are given
func New(kind Kind, config Config, names ...string) ([]Checker, error) {
	if err := config.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	if len(names) == 0 {
		names = Names(kind)
	}
	var checkers []Checker
	for _, name := range names {
		r, err := lookup(kind, name)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		if r.kind == KindDebugger && config.Executor == nil {
			return nil, trace.BadParameter("debugger %q requires a remote executor", name)
		}
		checkers = append(checkers, r.new(config))
	}
	return checkers, nil
}

func lookup(kind Kind, name string) (*registration, error) {
	for i, r := range registry {
		if r.kind == kind && r.name == name {
			return &registry[i], nil
		}
	}
	return nil, trace.NotFound("unknown %v check %q, expected one of %v",
		kind, name, Names(kind))
}

// Run runs the checkers in order and prints the tally of each one.
// Returns an error if any checker has failed or recorded a failure
func Run(ctx context.Context, out io.Writer, checkers []Checker, graph *roles.Graph, descriptor *schema.Descriptor) ([]Tally, error) {
	var tallies []Tally
	var failed []string
	for _, checker := range checkers {
		tally, err := checker.Check(ctx, graph, descriptor)
		if err != nil {
			tally.Failed++
			newReport(out, tally.Kind, checker.Name()).Failure("%v", trace.UserMessage(err))
		}
		tally.Name = checker.Name()
		tally.Print(out)
		tallies = append(tallies, tally)
		if !tally.OK() {
			failed = append(failed, tally.Name)
		}
	}
	if len(failed) != 0 {
		sort.Strings(failed)
		return tallies, trace.CompareFailed("checks failed: %v", failed)
	}
	return tallies, nil
}
