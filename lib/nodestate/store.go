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

// Package nodestate keeps the per-host node documents that hold the run
// list assigned to each managed host
package nodestate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/run"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Bootstrapper makes first contact with a host so that the agent
// registers it and reports its node document
type Bootstrapper interface {
	// Bootstrap performs the initial agent run on the specified host
	Bootstrap(ctx context.Context, host string) error
}

// Config defines the node state store configuration
type Config struct {
	// Documents persists node documents
	Documents Documents
	// Bootstrapper contacts hosts without a node document
	Bootstrapper Bootstrapper
	// Parallel is the number of hosts updated concurrently
	Parallel int
	// FieldLogger is used for logging
	logrus.FieldLogger
}

// CheckAndSetDefaults validates the config and sets defaults
func (c *Config) CheckAndSetDefaults() error {
	if c.Documents == nil {
		return trace.BadParameter("missing Documents")
	}
	if c.Bootstrapper == nil {
		return trace.BadParameter("missing Bootstrapper")
	}
	if c.Parallel == 0 {
		c.Parallel = defaults.ParallelHosts
	}
	if c.FieldLogger == nil {
		c.FieldLogger = logrus.WithField(trace.Component, "nodestate")
	}
	return nil
}

// Record is the state of a single managed host
type Record struct {
	// Name is the node name assigned by the agent
	Name string
	// Address is the host address reported by the agent
	Address string
	// RunList is the ordered list of configuration units assigned to the host
	RunList []string
}

// Store manages node documents.
// Hosts are addressed by their declared address and resolved to
// agent-assigned node names by matching the address the agent reported.
type Store struct {
	Config

	// mu guards docs and the underlying documents
	mu sync.Mutex
	// docs maps node names to parsed documents
	docs map[string]document

	locksMu sync.Mutex
	// locks serializes updates of the same host
	locks map[string]*sync.Mutex
}

// New returns a new store
func New(config Config) (*Store, error) {
	if err := config.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Store{
		Config: config,
		docs:   make(map[string]document),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Load reloads node documents and resolves the specified hosts.
// It returns a NodeLookupError for each host without a node document.
func (s *Store) Load(hosts []string) (run.Errors, error) {
	if err := s.refresh(); err != nil {
		return nil, trace.Wrap(err)
	}
	errs := make(run.Errors)
	for _, host := range hosts {
		if _, ok := s.lookup(host); !ok {
			errs[host] = trace.Wrap(&NodeLookupError{Host: host})
		}
	}
	return errs, nil
}

// Assign adds units to the run list of each host skipping units
// already present. Only changed documents are written.
// A host without a node document is bootstrapped once before
// the assignment is retried.
func (s *Store) Assign(ctx context.Context, hosts []string, units []string) run.Errors {
	return run.ForEach(ctx, hosts, s.Parallel, func(host string) error {
		return trace.Wrap(s.assign(ctx, host, units))
	})
}

// Clear empties the run list of each host.
// Hosts without a node document have no run list and are skipped.
func (s *Store) Clear(ctx context.Context, hosts []string) run.Errors {
	return run.ForEach(ctx, hosts, s.Parallel, func(host string) error {
		return trace.Wrap(s.clear(host))
	})
}

// Get returns the record of the specified host
func (s *Store) Get(host string) (*Record, error) {
	name, ok := s.lookup(host)
	if !ok {
		if err := s.refresh(); err != nil {
			return nil, trace.Wrap(err)
		}
		if name, ok = s.lookup(host); !ok {
			return nil, trace.Wrap(&NodeLookupError{Host: host})
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[name]
	return &Record{
		Name:    name,
		Address: doc.address(),
		RunList: doc.runList(),
	}, nil
}

// Attributes returns a copy of the complete node document of the specified host
func (s *Store) Attributes(host string) (map[string]interface{}, error) {
	record, err := s.Get(host)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[record.Name].clone()
}

// Import stores a node document reported by the agent
func (s *Store) Import(name string, data []byte) error {
	doc, err := parseDocument(data)
	if err != nil {
		return trace.Wrap(err, "failed to parse node document %v", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return trace.Wrap(s.writeLocked(name, doc))
}

// Purge removes all node documents
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.Documents.List()
	if err != nil {
		return trace.Wrap(err)
	}
	for name := range list {
		if err := s.Documents.Remove(name); err != nil {
			return trace.Wrap(err)
		}
	}
	s.docs = make(map[string]document)
	s.Info("Removed all node documents.")
	return nil
}

func (s *Store) assign(ctx context.Context, host string, units []string) error {
	unlock := s.lockHost(host)
	defer unlock()

	name, err := s.resolve(host)
	if err != nil && IsNodeLookup(err) {
		s.WithField(constants.FieldHost, host).Info("Doing initial bootstrap.")
		if err := s.Bootstrapper.Bootstrap(ctx, host); err != nil {
			return trace.Wrap(err, "failed to bootstrap %v", host)
		}
		name, err = s.resolve(host)
	}
	if err != nil {
		return trace.Wrap(err)
	}
	return s.update(name, func(runList []string) []string {
		return union(runList, units)
	})
}

func (s *Store) clear(host string) error {
	unlock := s.lockHost(host)
	defer unlock()

	name, err := s.resolve(host)
	if err != nil {
		if IsNodeLookup(err) {
			s.WithField(constants.FieldHost, host).Info("Unable to find node, nothing to clear.")
			return nil
		}
		return trace.Wrap(err)
	}
	return s.update(name, func([]string) []string {
		return []string{}
	})
}

// update applies fn to the run list of the named node and writes
// the document back if the run list has changed
func (s *Store) update(name string, fn func([]string) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok {
		return trace.NotFound("node %v not found", name)
	}
	current := doc.runList()
	updated := fn(current)
	if _, hasRunList := doc[constants.RunListKey]; hasRunList && equal(current, updated) {
		return nil
	}
	doc = doc.withRunList(updated)
	if err := s.writeLocked(name, doc); err != nil {
		return trace.Wrap(err)
	}
	s.WithFields(logrus.Fields{
		constants.FieldNode: name,
		"run_list":          updated,
	}).Debug("Updated run list.")
	return nil
}

// resolve returns the node name of the host reloading the documents
// if the host is not known yet
func (s *Store) resolve(host string) (string, error) {
	if name, ok := s.lookup(host); ok {
		return name, nil
	}
	if err := s.refresh(); err != nil {
		return "", trace.Wrap(err)
	}
	if name, ok := s.lookup(host); ok {
		return name, nil
	}
	return "", trace.Wrap(&NodeLookupError{Host: host})
}

func (s *Store) lookup(host string) (name string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, doc := range s.docs {
		if doc.address() == host {
			return name, true
		}
	}
	return "", false
}

// refresh reloads all documents
func (s *Store) refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.Documents.List()
	if err != nil {
		return trace.Wrap(err)
	}
	docs := make(map[string]document, len(list))
	for name, data := range list {
		doc, err := parseDocument(data)
		if err != nil {
			return trace.Wrap(err, "unable to read node document %v", name)
		}
		docs[name] = doc
	}
	s.docs = docs
	return nil
}

func (s *Store) writeLocked(name string, doc document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return trace.Wrap(err)
	}
	if err := s.Documents.Write(name, data); err != nil {
		return trace.Wrap(err)
	}
	s.docs[name] = doc
	return nil
}

func (s *Store) lockHost(host string) (unlock func()) {
	s.locksMu.Lock()
	lock, ok := s.locks[host]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[host] = lock
	}
	s.locksMu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// union appends the units missing from runList preserving the order of
// first insertion
func union(runList, units []string) []string {
	seen := make(map[string]struct{}, len(runList)+len(units))
	out := make([]string, 0, len(runList)+len(units))
	for _, unit := range append(append([]string{}, runList...), units...) {
		if _, ok := seen[unit]; ok {
			continue
		}
		seen[unit] = struct{}{}
		out = append(out, unit)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
