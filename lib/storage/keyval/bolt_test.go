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

package keyval

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eucalyptus/calyptos/lib/storage"
	"github.com/eucalyptus/calyptos/lib/storage/suite"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	. "gopkg.in/check.v1"
)

func TestKeyval(t *testing.T) { TestingT(t) }

type BSuite struct {
	backend *tempBolt
	suite   suite.StorageSuite
}

var _ = Suite(&BSuite{})

// tempBolt helps to create and destroy ad-hock bolt databases
type tempBolt struct {
	clock   clockwork.FakeClock
	backend storage.Backend
	dir     string
	path    string
}

func (t *tempBolt) Delete() error {
	var errs []error
	if t.backend != nil {
		errs = append(errs, t.backend.Close())
	}
	if t.dir != "" {
		errs = append(errs, os.RemoveAll(t.dir))
	}
	return trace.NewAggregate(errs...)
}

func newTempBolt() (*tempBolt, error) {
	dir, err := ioutil.TempDir("", "calyptos-test")
	if err != nil {
		return nil, trace.Wrap(err)
	}
	fakeClock := clockwork.NewFakeClock()
	path := filepath.Join(dir, "bolt.db")
	b, err := NewBolt(BoltConfig{
		Clock: fakeClock,
		Path:  path,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &tempBolt{
		dir:     dir,
		path:    path,
		clock:   fakeClock,
		backend: b,
	}, nil
}

func (s *BSuite) SetUpTest(c *C) {
	log.SetOutput(os.Stderr)

	var err error
	s.backend, err = newTempBolt()
	c.Assert(err, IsNil)

	s.suite.Backend = s.backend.backend
	s.suite.Clock = s.backend.clock
}

func (s *BSuite) TearDownTest(c *C) {
	if s.backend != nil {
		err := s.backend.Delete()
		if err != nil {
			log.Error(trace.DebugReport(err))
		}
		c.Assert(err, IsNil)
	}
}

func (s *BSuite) TestOperationsCRUD(c *C) {
	s.suite.OperationsCRUD(c)
}

func (s *BSuite) TestOperationsDefaults(c *C) {
	s.suite.OperationsDefaults(c)
}

func (s *BSuite) TestLockedDatabase(c *C) {
	_, err := NewBolt(BoltConfig{
		Path:    s.backend.path,
		Timeout: 100 * time.Millisecond,
	})
	c.Assert(trace.IsConnectionProblem(err), Equals, true, Commentf("%v", err))
}

func (s *BSuite) TestReopen(c *C) {
	op, err := s.backend.backend.CreateOperation(storage.Operation{
		Phase:       "uninstall",
		Environment: "test",
		State:       storage.OperationStateSucceeded,
	})
	c.Assert(err, IsNil)
	c.Assert(s.backend.backend.Close(), IsNil)

	s.backend.backend, err = NewBolt(BoltConfig{Path: s.backend.path, Readonly: true})
	c.Assert(err, IsNil)
	out, err := s.backend.backend.GetOperation(op.ID)
	c.Assert(err, IsNil)
	c.Assert(out.Phase, Equals, "uninstall")
}

func (s *BSuite) TestRequiresPath(c *C) {
	_, err := NewBolt(BoltConfig{})
	c.Assert(trace.IsBadParameter(err), Equals, true)
}
