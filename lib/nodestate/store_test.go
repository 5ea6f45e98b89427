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

package nodestate

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/eucalyptus/calyptos/lib/compare"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
	. "gopkg.in/check.v1"
)

func TestNodeState(t *testing.T) { TestingT(t) }

type StoreSuite struct {
	docs      *memDocuments
	bootstrap *fakeBootstrapper
	store     *Store
}

var _ = Suite(&StoreSuite{})

func (s *StoreSuite) SetUpTest(c *C) {
	s.docs = newMemDocuments()
	s.docs.put("node-1", nodeDocument("node-1", "10.0.0.1", "role[old]"))
	s.docs.put("node-2", nodeDocument("node-2", "10.0.0.2"))
	s.bootstrap = &fakeBootstrapper{docs: s.docs, known: map[string]string{}}
	var err error
	s.store, err = New(Config{
		Documents:    s.docs,
		Bootstrapper: s.bootstrap,
		Parallel:     4,
		FieldLogger:  logrus.WithField(trace.Component, "test"),
	})
	c.Assert(err, IsNil)
}

func (s *StoreSuite) TestAssignIsIdempotent(c *C) {
	ctx := context.Background()
	units := []string{"eucalyptus::default", "eucalyptus::cloud-controller"}

	errs := s.store.Assign(ctx, []string{"10.0.0.1"}, units)
	c.Assert(errs, HasLen, 0)
	once, err := s.store.Get("10.0.0.1")
	c.Assert(err, IsNil)
	writes := s.docs.writeCount("node-1")

	errs = s.store.Assign(ctx, []string{"10.0.0.1"}, units)
	c.Assert(errs, HasLen, 0)
	twice, err := s.store.Get("10.0.0.1")
	c.Assert(err, IsNil)

	compare.DeepCompare(c, twice, once)
	c.Assert(twice.RunList, DeepEquals, []string{"role[old]", "eucalyptus::default", "eucalyptus::cloud-controller"})
	c.Assert(s.docs.writeCount("node-1"), Equals, writes, Commentf("unchanged document must not be written"))
}

func (s *StoreSuite) TestClearThenAssign(c *C) {
	ctx := context.Background()
	units := []string{"b", "a", "b", "c"}

	c.Assert(s.store.Clear(ctx, []string{"10.0.0.1"}), HasLen, 0)
	c.Assert(s.store.Assign(ctx, []string{"10.0.0.1"}, units), HasLen, 0)

	record, err := s.store.Get("10.0.0.1")
	c.Assert(err, IsNil)
	c.Assert(record.Name, Equals, "node-1")
	c.Assert(record.Address, Equals, "10.0.0.1")
	c.Assert(record.RunList, DeepEquals, []string{"b", "a", "c"})
}

func (s *StoreSuite) TestAssignPreservesUnknownKeys(c *C) {
	c.Assert(s.store.Assign(context.Background(), []string{"10.0.0.2"}, []string{"x"}), HasLen, 0)

	var doc map[string]interface{}
	c.Assert(json.Unmarshal(s.docs.get("node-2"), &doc), IsNil)
	c.Assert(doc["chef_environment"], Equals, "test")
	c.Assert(doc["run_list"], DeepEquals, []interface{}{"x"})

	attrs, err := s.store.Attributes("10.0.0.2")
	c.Assert(err, IsNil)
	c.Assert(attrs["normal"], DeepEquals, map[string]interface{}{"tags": []interface{}{}})
}

func (s *StoreSuite) TestAssignBootstrapsUnknownHostOnce(c *C) {
	s.bootstrap.known["10.0.0.3"] = "node-3"

	errs := s.store.Assign(context.Background(), []string{"10.0.0.1", "10.0.0.3", "10.0.0.4"}, []string{"x"})

	c.Assert(errs.Keys(), DeepEquals, []string{"10.0.0.4"})
	c.Assert(IsNodeLookup(errs["10.0.0.4"]), Equals, true, Commentf("%v", errs["10.0.0.4"]))
	c.Assert(s.bootstrap.calls(), DeepEquals, map[string]int{"10.0.0.3": 1, "10.0.0.4": 1})

	record, err := s.store.Get("10.0.0.3")
	c.Assert(err, IsNil)
	c.Assert(record.Name, Equals, "node-3")
	c.Assert(record.RunList, DeepEquals, []string{"x"})
}

func (s *StoreSuite) TestBootstrapFailureIsHostScoped(c *C) {
	s.bootstrap.err = trace.ConnectionProblem(nil, "connection refused")

	errs := s.store.Assign(context.Background(), []string{"10.0.0.1", "10.0.0.9"}, []string{"x"})

	c.Assert(errs.Keys(), DeepEquals, []string{"10.0.0.9"})
	c.Assert(trace.IsConnectionProblem(errs["10.0.0.9"]), Equals, true)
	record, err := s.store.Get("10.0.0.1")
	c.Assert(err, IsNil)
	c.Assert(record.RunList, DeepEquals, []string{"role[old]", "x"})
}

func (s *StoreSuite) TestClearSkipsUnknownHosts(c *C) {
	errs := s.store.Clear(context.Background(), []string{"10.0.0.1", "10.0.0.9"})
	c.Assert(errs, HasLen, 0)
	c.Assert(s.bootstrap.calls(), HasLen, 0)

	record, err := s.store.Get("10.0.0.1")
	c.Assert(err, IsNil)
	c.Assert(record.RunList, DeepEquals, []string{})
}

func (s *StoreSuite) TestLoad(c *C) {
	errs, err := s.store.Load([]string{"10.0.0.1", "10.0.0.2", "10.0.0.5"})
	c.Assert(err, IsNil)
	c.Assert(errs.Keys(), DeepEquals, []string{"10.0.0.5"})
	c.Assert(IsNodeLookup(errs["10.0.0.5"]), Equals, true)
	c.Assert(trace.IsNotFound(errs["10.0.0.5"]), Equals, true)
}

func (s *StoreSuite) TestImportAndPurge(c *C) {
	c.Assert(s.store.Import("node-7", nodeDocument("node-7", "10.0.0.7")), IsNil)
	record, err := s.store.Get("10.0.0.7")
	c.Assert(err, IsNil)
	c.Assert(record.Name, Equals, "node-7")

	c.Assert(s.store.Import("broken", []byte("{")), NotNil)

	c.Assert(s.store.Purge(), IsNil)
	c.Assert(s.docs.names(), HasLen, 0)
	_, err = s.store.Get("10.0.0.7")
	c.Assert(IsNodeLookup(err), Equals, true)
}

type DirDocumentsSuite struct{}

var _ = Suite(&DirDocumentsSuite{})

func (s *DirDocumentsSuite) TestReadWriteRemove(c *C) {
	dir := c.MkDir()
	docs := NewDirDocuments(dir)

	list, err := docs.List()
	c.Assert(err, IsNil)
	c.Assert(list, HasLen, 0)

	c.Assert(docs.Write("node-1", []byte(`{"name":"node-1"}`)), IsNil)
	c.Assert(docs.Write("node-2", []byte(`{"name":"node-2"}`)), IsNil)
	c.Assert(docs.Write("node-1", []byte(`{"name":"node-1","run_list":[]}`)), IsNil)

	list, err = docs.List()
	c.Assert(err, IsNil)
	compare.DeepCompare(c, list, map[string][]byte{
		"node-1": []byte(`{"name":"node-1","run_list":[]}`),
		"node-2": []byte(`{"name":"node-2"}`),
	})

	c.Assert(docs.Remove("node-2"), IsNil)
	c.Assert(docs.Remove("node-2"), IsNil)
	list, err = docs.List()
	c.Assert(err, IsNil)
	c.Assert(list, HasLen, 1)
}

func nodeDocument(name, addr string, runList ...string) []byte {
	if runList == nil {
		runList = []string{}
	}
	data, err := json.Marshal(map[string]interface{}{
		"name":             name,
		"chef_environment": "test",
		"run_list":         runList,
		"normal":           map[string]interface{}{"tags": []string{}},
		"automatic": map[string]interface{}{
			"ipaddress": addr,
			"hostname":  name,
		},
	})
	if err != nil {
		panic(err)
	}
	return data
}

type memDocuments struct {
	sync.Mutex
	docs   map[string][]byte
	writes map[string]int
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: map[string][]byte{}, writes: map[string]int{}}
}

func (m *memDocuments) List() (map[string][]byte, error) {
	m.Lock()
	defer m.Unlock()
	out := make(map[string][]byte, len(m.docs))
	for name, data := range m.docs {
		out[name] = data
	}
	return out, nil
}

func (m *memDocuments) Write(name string, data []byte) error {
	m.Lock()
	defer m.Unlock()
	m.docs[name] = data
	m.writes[name]++
	return nil
}

func (m *memDocuments) Remove(name string) error {
	m.Lock()
	defer m.Unlock()
	delete(m.docs, name)
	return nil
}

func (m *memDocuments) put(name string, data []byte) {
	m.Lock()
	defer m.Unlock()
	m.docs[name] = data
}

func (m *memDocuments) get(name string) []byte {
	m.Lock()
	defer m.Unlock()
	return m.docs[name]
}

func (m *memDocuments) names() []string {
	m.Lock()
	defer m.Unlock()
	var names []string
	for name := range m.docs {
		names = append(names, name)
	}
	return names
}

func (m *memDocuments) writeCount(name string) int {
	m.Lock()
	defer m.Unlock()
	return m.writes[name]
}

// fakeBootstrapper registers the hosts listed in known the way the agent
// would on its first run
type fakeBootstrapper struct {
	sync.Mutex
	docs    *memDocuments
	known   map[string]string
	err     error
	invoked map[string]int
}

func (b *fakeBootstrapper) Bootstrap(ctx context.Context, host string) error {
	b.Lock()
	defer b.Unlock()
	if b.invoked == nil {
		b.invoked = make(map[string]int)
	}
	b.invoked[host]++
	if b.err != nil {
		return b.err
	}
	if name, ok := b.known[host]; ok {
		b.docs.put(name, nodeDocument(name, host))
	}
	return nil
}

func (b *fakeBootstrapper) calls() map[string]int {
	b.Lock()
	defer b.Unlock()
	out := make(map[string]int, len(b.invoked))
	for host, n := range b.invoked {
		out[host] = n
	}
	return out
}
