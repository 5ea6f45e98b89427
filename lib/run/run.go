/*
Copyright 2018 Gravitational, Inc.

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

// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// Package run provides bounded fan-out for batches of per-host tasks.
// The package is based on golang.org/x/sync/errgroup: it adds concurrency
// limits on top and, unlike errgroup, collects the error of every task
// instead of cancelling the remaining ones on the first failure.
package run

import (
	"context"
	"sort"
	"sync"

	"github.com/gravitational/trace"
)

// A Group is a collection of goroutines working on independent subtasks
// that are part of the same batch. Each subtask is identified by a key,
// usually a host address.
// The parallelization of tasks is controlled by a semaphore that is either
// unrestricted (allows unlimited number of concurrent tasks) or limits
// them to a certain amount.
//
// A zero Group is valid and runs tasks without a limit.
type Group struct {
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs Errors
	semaphoreStore
}

// New returns a new group with the specified concurrency configuration.
func New(options ...Option) *Group {
	group := &Group{}
	for _, opt := range options {
		opt(group)
	}
	return group
}

// Wait blocks until all function calls from the Go method have returned, then
// returns the errors of the failed tasks keyed by task key.
// The returned value is empty if all tasks have succeeded.
func (r *Group) Wait() Errors {
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := make(Errors, len(r.errs))
	for key, err := range r.errs {
		errs[key] = err
	}
	return errs
}

// Go calls the given function in a new goroutine.
// The call to Go might block if there're already as many tasks
// running as configured by WithParallel.
//
// A failing task does not affect the other tasks of the group.
func (r *Group) Go(ctx context.Context, key string, fn func() error) {
	r.alloc(ctx)

	r.wg.Add(1)
	go func() {
		defer func() {
			r.wg.Done()
			r.free(ctx)
		}()
		if err := fn(); err != nil {
			r.mu.Lock()
			if r.errs == nil {
				r.errs = make(Errors)
			}
			r.errs[key] = err
			r.mu.Unlock()
		}
	}()
}

// ForEach runs fn for every key with at most parallel tasks in flight and
// blocks until all of them have completed
func ForEach(ctx context.Context, keys []string, parallel int, fn func(key string) error) Errors {
	group := New(WithParallel(parallel))
	for _, key := range keys {
		key := key
		group.Go(ctx, key, func() error {
			return fn(key)
		})
	}
	return group.Wait()
}

// Errors maps task keys to task errors
type Errors map[string]error

// Keys returns the keys of the failed tasks in sorted order
func (r Errors) Keys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Aggregate returns all errors as a single error ordered by key
// or nil if there are none
func (r Errors) Aggregate() error {
	if len(r) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r))
	for _, key := range r.Keys() {
		errs = append(errs, r[key])
	}
	return trace.NewAggregate(errs...)
}

// Option is a configuration option for Group
type Option func(group *Group)

type semaphore interface {
	alloc(context.Context)
	free(context.Context)
}

func (r chanSemaphore) alloc(ctx context.Context) {
	select {
	case r <- struct{}{}:
	case <-ctx.Done():
		return
	}
}

func (r chanSemaphore) free(ctx context.Context) {
	select {
	case <-r:
	case <-ctx.Done():
	}
}

type chanSemaphore chan struct{}

func (r semaphoreStore) alloc(ctx context.Context) {
	if r.semaphore != nil {
		r.semaphore.alloc(ctx)
	}
}

func (r semaphoreStore) free(ctx context.Context) {
	if r.semaphore != nil {
		r.semaphore.free(ctx)
	}
}

// semaphoreStore wraps a semaphore implementation.
// It implements semaphore and does nothing if the underlying semaphore
// has not been initialized
type semaphoreStore struct {
	semaphore
}

// WithParallel creates a new semaphore that caps the number of tasks to the
// specified value.
//
// If parallel < 0, then the tasks are not capped.
// If parallel == 0, then the behaviour is as with parallel == 1
// If parallel > 0, then the specified number of tasks is allowed to run concurrently
func WithParallel(parallel int) Option {
	return func(group *Group) {
		if parallel < 0 {
			// No explicit semaphore
			return
		}

		switch parallel {
		case 0, 1:
			group.semaphore = make(chanSemaphore, 1)
		default:
			group.semaphore = make(chanSemaphore, parallel)
		}
	}
}
