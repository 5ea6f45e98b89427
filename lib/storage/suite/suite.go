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

// package suite contains a journal acceptance test suite that is backend
// implementation independent each backend will use the suite to test itself
package suite

import (
	"time"

	"github.com/eucalyptus/calyptos/lib/compare"
	"github.com/eucalyptus/calyptos/lib/storage"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	. "gopkg.in/check.v1"
)

var now = time.Date(2015, 11, 16, 1, 2, 3, 0, time.UTC)

type StorageSuite struct {
	Backend storage.Backend
	Clock   clockwork.FakeClock
}

func (s *StorageSuite) OperationsCRUD(c *C) {
	op1 := storage.Operation{
		Phase:       "bootstrap",
		Environment: "test",
		Created:     now,
		Updated:     now,
		State:       storage.OperationStatePending,
	}

	out1, err := s.Backend.CreateOperation(op1)
	c.Assert(err, IsNil)
	c.Assert(out1.ID, Not(Equals), "")
	op1.ID = out1.ID
	compare.DeepCompare(c, *out1, op1)

	out1, err = s.Backend.GetOperation(op1.ID)
	c.Assert(err, IsNil)
	compare.DeepCompare(c, *out1, op1)

	hourLater := now.Add(time.Hour)
	s.Clock.Advance(hourLater.Sub(s.Clock.Now()))
	op1.State = storage.OperationStateFailed
	op1.Error = "failed on 192.168.0.2"
	op1.Steps = []storage.OperationStep{
		{
			Name:      "clc",
			Hosts:     []string{"192.168.0.1", "192.168.0.2"},
			Failed:    map[string]string{"192.168.0.2": "exit status 1"},
			Started:   now,
			Completed: hourLater,
		},
	}
	out1, err = s.Backend.UpdateOperation(op1)
	c.Assert(err, IsNil)
	op1.Updated = s.Clock.Now().UTC()
	compare.DeepCompare(c, *out1, op1)

	out1, err = s.Backend.GetOperation(op1.ID)
	c.Assert(err, IsNil)
	compare.DeepCompare(c, *out1, op1)
	c.Assert(out1.FailedHosts(), DeepEquals, []string{"192.168.0.2"})
	c.Assert(out1.Hosts(), DeepEquals, []string{"192.168.0.1", "192.168.0.2"})

	out2, err := s.Backend.CreateOperation(storage.Operation{
		Phase:       "provision",
		Environment: "test",
		Created:     hourLater,
		Updated:     hourLater,
		State:       storage.OperationStatePending,
	})
	c.Assert(err, IsNil)

	ops, err := s.Backend.GetOperations()
	c.Assert(err, IsNil)
	c.Assert(len(ops), Equals, 2)
	c.Assert(ops[0].ID, Equals, out2.ID)
	c.Assert(ops[1].ID, Equals, op1.ID)

	_, err = s.Backend.CreateOperation(op1)
	c.Assert(trace.IsAlreadyExists(err), Equals, true, Commentf("%v", err))

	_, err = s.Backend.UpdateOperation(storage.Operation{
		ID:          "missing",
		Phase:       "provision",
		Environment: "test",
	})
	c.Assert(trace.IsNotFound(err), Equals, true, Commentf("%v", err))

	_, err = s.Backend.GetOperation("missing")
	c.Assert(trace.IsNotFound(err), Equals, true, Commentf("%v", err))

	_, err = s.Backend.CreateOperation(storage.Operation{Environment: "test"})
	c.Assert(trace.IsBadParameter(err), Equals, true, Commentf("%v", err))
}

func (s *StorageSuite) OperationsDefaults(c *C) {
	op, err := s.Backend.CreateOperation(storage.Operation{
		Phase:       "prepare",
		Environment: "test",
		State:       storage.OperationStatePending,
	})
	c.Assert(err, IsNil)
	c.Assert(op.ID, Not(Equals), "")
	c.Assert(op.Created, Equals, s.Clock.Now().UTC())
	c.Assert(op.Updated, Equals, op.Created)

	ops, err := s.Backend.GetOperations()
	c.Assert(err, IsNil)
	c.Assert(ops, HasLen, 1)
}
