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

package agent

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/eucalyptus/calyptos/lib/remote"
	"github.com/eucalyptus/calyptos/lib/schema"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	. "gopkg.in/check.v1"
)

func TestAgent(t *testing.T) { TestingT(t) }

type AgentSuite struct {
	executor *fakeExecutor
	agent    *Agent
	keyPath  string
}

var _ = Suite(&AgentSuite{})

func (s *AgentSuite) SetUpTest(c *C) {
	dir := c.MkDir()
	s.keyPath = filepath.Join(dir, "id_rsa.pub")
	c.Assert(ioutil.WriteFile(s.keyPath, []byte("ssh-rsa AAAAB3 deployer@local\n"), 0644), IsNil)
	s.executor = &fakeExecutor{
		hostnames: map[string]string{
			"10.0.0.1": "deployer",
			"10.0.0.2": "node-2",
			"10.0.0.3": "node-3",
		},
		files: map[string]string{
			"/root/deploy/chef-repo/nodes/node-2.json": `{"name":"node-2"}`,
		},
	}
	var err error
	s.agent, err = New(Config{
		Executor:      s.executor,
		Environment:   "production",
		WorkDir:       "/home/user/deploy",
		PublicKeyPath: s.keyPath,
		LocalHostname: "deployer",
	})
	c.Assert(err, IsNil)
}

func (s *AgentSuite) TestDefaults(c *C) {
	c.Assert(s.agent.RemoteDir, Equals, "/root/deploy")
	_, err := New(Config{Executor: s.executor})
	c.Assert(trace.IsBadParameter(err), Equals, true)
}

func (s *AgentSuite) TestSyncTrust(c *C) {
	results, err := s.agent.SyncTrust(context.Background(), []string{"10.0.0.1"})
	c.Assert(err, IsNil)
	c.Assert(results.Failed(), HasLen, 0)
	cmds := s.executor.commands()
	c.Assert(cmds, HasLen, 1)
	c.Assert(strings.Contains(cmds[0].Script, "grep -q -F 'ssh-rsa AAAAB3 deployer@local'"), Equals, true, Commentf("%s", cmds[0].Script))
	c.Assert(strings.Contains(cmds[0].Script, ">> ~/.ssh/authorized_keys"), Equals, true)

	s.agent.PublicKeyPath = filepath.Join(c.MkDir(), "missing.pub")
	_, err = s.agent.SyncTrust(context.Background(), []string{"10.0.0.1"})
	c.Assert(err, NotNil)
}

func (s *AgentSuite) TestApplyAndInstall(c *C) {
	s.agent.Apply(context.Background(), []string{"10.0.0.2"})
	s.agent.Install(context.Background(), []string{"10.0.0.2"})
	cmds := s.executor.commands()
	c.Assert(cmds, HasLen, 2)
	c.Assert(cmds[0].String(), Equals, "cd /root/deploy/chef-repo && chef-client -z -E 'production'")
	c.Assert(strings.Contains(cmds[1].Script, "-v 11.16.4"), Equals, true, Commentf("%s", cmds[1].Script))
}

func (s *AgentSuite) TestPullSkipsLocalHost(c *C) {
	importer := &fakeImporter{docs: map[string]string{}}
	results := s.agent.Pull(context.Background(), []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, importer)

	c.Assert(results.Hosts(), DeepEquals, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"})
	c.Assert(results.Failed(), DeepEquals, []string{"10.0.0.3"})
	c.Assert(importer.docs, DeepEquals, map[string]string{"node-2": `{"name":"node-2"}`})
}

func (s *AgentSuite) TestPullReportsUnreachableHost(c *C) {
	s.executor.unreachable = "10.0.0.2"
	importer := &fakeImporter{docs: map[string]string{}}
	results := s.agent.Pull(context.Background(), []string{"10.0.0.2"}, importer)
	c.Assert(results.Failed(), DeepEquals, []string{"10.0.0.2"})
	c.Assert(importer.docs, HasLen, 0)
}

func (s *AgentSuite) TestWorkspacePrepare(c *C) {
	dir := c.MkDir()
	runner := &recordingRunner{}
	workspace, err := NewWorkspace(WorkspaceConfig{
		Dir:        dir,
		UpdateRepo: true,
		Branch:     "euca-4.2",
		Runner:     runner,
	})
	c.Assert(err, IsNil)
	descriptor, err := schema.ParseEnvironmentYAML([]byte(`name: production
default_attributes:
  eucalyptus:
    topology:
      clc-1: 10.0.0.1
override_attributes: {}
`))
	c.Assert(err, IsNil)

	c.Assert(workspace.Prepare(context.Background(), descriptor), IsNil)

	c.Assert(runner.commands(), DeepEquals, []string{
		"chef generate app chef-repo @ " + dir,
		"git clone https://github.com/eucalyptus/eucalyptus-cookbook eucalyptus-cookbook @ " + dir,
		"git checkout euca-4.2 @ " + filepath.Join(dir, "eucalyptus-cookbook"),
		"git pull origin euca-4.2 @ " + filepath.Join(dir, "eucalyptus-cookbook"),
		"berks vendor --berksfile eucalyptus-cookbook/Berksfile chef-repo/cookbooks @ " + dir,
	})

	data, err := ioutil.ReadFile(filepath.Join(dir, "chef-repo", "environments", "production.json"))
	c.Assert(err, IsNil)
	var env map[string]interface{}
	c.Assert(json.Unmarshal(data, &env), IsNil)
	c.Assert(env["override_attributes"], DeepEquals, map[string]interface{}{})
	c.Assert(strings.Contains(string(data), "\n    \"default_attributes\""), Equals, true)

	_, err = utils.IsDirectory(workspace.NodesDir())
	c.Assert(err, IsNil)
}

func (s *AgentSuite) TestBulkDeregister(c *C) {
	runner := &recordingRunner{}
	nodes := &fakeNodes{}
	inventory, err := NewInventory(InventoryConfig{
		Nodes:   nodes,
		WorkDir: "/home/user/deploy",
		Runner:  runner,
	})
	c.Assert(err, IsNil)

	c.Assert(inventory.BulkDeregister(context.Background(), "production"), IsNil)
	c.Assert(runner.commands(), DeepEquals, []string{
		"knife node bulk delete -z -E production -y .* @ /home/user/deploy/chef-repo",
	})
	c.Assert(nodes.purged, Equals, true)

	runner.err = trace.Errorf("exit status 1")
	nodes.purged = false
	c.Assert(inventory.BulkDeregister(context.Background(), "production"), NotNil)
	c.Assert(nodes.purged, Equals, false)
}

type fakeExecutor struct {
	sync.Mutex
	hostnames   map[string]string
	files       map[string]string
	unreachable string
	cmds        []remote.Command
}

func (e *fakeExecutor) Execute(ctx context.Context, hosts []string, cmd remote.Command) remote.Results {
	e.Lock()
	e.cmds = append(e.cmds, cmd)
	e.Unlock()
	results := make(remote.Results)
	for _, host := range hosts {
		if host == e.unreachable {
			results[host] = &remote.Result{Host: host, ExitStatus: -1, Error: trace.ConnectionProblem(nil, "unreachable")}
			continue
		}
		result := &remote.Result{Host: host, Succeeded: true}
		if cmd.Script == "hostname" {
			result.Output = e.hostnames[host] + "\n"
		}
		results[host] = result
	}
	return results
}

func (e *fakeExecutor) Push(ctx context.Context, hosts []string, localDir, remoteDir string) remote.Results {
	return e.Execute(ctx, hosts, remote.Command{Script: "push " + localDir + " " + remoteDir})
}

func (e *fakeExecutor) Fetch(ctx context.Context, host, path string) ([]byte, error) {
	data, ok := e.files[path]
	if !ok {
		return nil, trace.NotFound("%v not found on %v", path, host)
	}
	return []byte(data), nil
}

func (e *fakeExecutor) Close() error { return nil }

func (e *fakeExecutor) commands() []remote.Command {
	e.Lock()
	defer e.Unlock()
	return append([]remote.Command(nil), e.cmds...)
}

type fakeImporter struct {
	sync.Mutex
	docs map[string]string
}

func (i *fakeImporter) Import(name string, data []byte) error {
	i.Lock()
	defer i.Unlock()
	i.docs[name] = string(data)
	return nil
}

type fakeNodes struct {
	purged bool
}

func (n *fakeNodes) Attributes(host string) (map[string]interface{}, error) {
	return nil, trace.NotFound("no node %v", host)
}

func (n *fakeNodes) Purge() error {
	n.purged = true
	return nil
}

type recordingRunner struct {
	args []string
	err  error
}

func (r *recordingRunner) RunStream(ctx context.Context, stdout, stderr io.Writer, args []string, opts ...utils.CommandOptionSetter) error {
	cmd := exec.Command(args[0], args[1:]...)
	for _, opt := range opts {
		opt(cmd)
	}
	r.args = append(r.args, strings.Join(args, " ")+" @ "+cmd.Dir)
	return r.err
}

func (r *recordingRunner) commands() []string {
	return r.args
}
