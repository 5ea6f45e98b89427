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
package run

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestZeroGroup(t *testing.T) {
	err1 := errors.New("run_test: 1")
	err2 := errors.New("run_test: 2")

	cases := []struct {
		errs []error
		want int
	}{
		{errs: []error{}, want: 0},
		{errs: []error{nil}, want: 0},
		{errs: []error{err1}, want: 1},
		{errs: []error{err1, nil}, want: 1},
		{errs: []error{err1, nil, err2}, want: 2},
	}

	ctx := context.Background()
	for _, tc := range cases {
		var g Group
		for i, err := range tc.errs {
			err := err
			g.Go(ctx, string(rune('a'+i)), func() error { return err })
		}
		errs := g.Wait()
		if len(errs) != tc.want {
			t.Errorf("for errs in %v g.Wait() = %v; want %v errors", tc.errs, errs, tc.want)
		}
		for i, err := range tc.errs {
			if got := errs[string(rune('a'+i))]; got != err {
				t.Errorf("for errs in %v task %v error = %v; want %v", tc.errs, i, got, err)
			}
		}
	}
}

func TestFailureDoesNotCancelSiblings(t *testing.T) {
	errDoom := errors.New("group_test: doomed")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var completed int32
	errs := ForEach(ctx, []string{"host-1", "host-2", "host-3"}, 3, func(host string) error {
		if host == "host-2" {
			return errDoom
		}
		// siblings are still running when host-2 fails
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&completed, 1)
		return nil
	})

	if completed != 2 {
		t.Errorf("Expected both siblings to complete but got %v.", completed)
	}
	if len(errs) != 1 || errs["host-2"] != errDoom {
		t.Errorf("Expected a single error for host-2 but got %v.", errs)
	}
	if keys := errs.Keys(); len(keys) != 1 || keys[0] != "host-2" {
		t.Errorf("Unexpected failed keys %v.", keys)
	}
	if errs.Aggregate() == nil {
		t.Error("Expected an aggregate error.")
	}
	if ctx.Err() != nil {
		t.Errorf("Expected the parent context to remain active but got %v.", ctx.Err())
	}
}

func TestAggregateIsNilWithoutErrors(t *testing.T) {
	errs := ForEach(context.Background(), []string{"a", "b"}, -1, func(string) error { return nil })
	if err := errs.Aggregate(); err != nil {
		t.Errorf("Expected no errors but got %v.", err)
	}
}

func TestWithLimit(t *testing.T) {
	g := New(WithParallel(1))
	ctx := context.Background()

	var store slice
	for _, text := range []string{"first", "second", "third"} {
		text := text
		g.Go(ctx, text, func() error {
			_, err := store.append(text)
			return err
		})
	}

	if errs := g.Wait(); len(errs) != 0 {
		t.Errorf("Expected no errors but got %v.", errs)
	}

	if store.String() != "firstsecondthird" {
		t.Errorf("Expected appends in a sequence but got %q.", store.String())
	}
}

func TestParallelIsBounded(t *testing.T) {
	var inflight, peak int32
	keys := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	ForEach(context.Background(), keys, 3, func(string) error {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		return nil
	})
	if peak > 3 {
		t.Errorf("Expected at most 3 tasks in flight but got %v.", peak)
	}
}

func (r *slice) append(s string) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Buffer.WriteString(s)
}

type slice struct {
	mu sync.Mutex
	bytes.Buffer
}
