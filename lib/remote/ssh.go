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

package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/run"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const exitStatusUndefined = -1

// Config defines the SSH executor configuration
type Config struct {
	// Session defines the credentials used for all hosts
	Session Session
	// Parallel is the number of hosts driven concurrently
	Parallel int
	// Runner runs the local file transfer commands
	Runner utils.CommandRunner
	// FieldLogger is used for logging
	logrus.FieldLogger
}

// CheckAndSetDefaults validates the config and sets defaults
func (c *Config) CheckAndSetDefaults() error {
	if err := c.Session.CheckAndSetDefaults(); err != nil {
		return trace.Wrap(err)
	}
	if c.Parallel == 0 {
		c.Parallel = defaults.ParallelHosts
	}
	if c.Runner == nil {
		c.Runner = utils.Runner
	}
	if c.FieldLogger == nil {
		c.FieldLogger = logrus.WithField(trace.Component, "remote")
	}
	return nil
}

// NewSSHExecutor returns a new executor that runs commands over SSH
func NewSSHExecutor(config Config) (*SSHExecutor, error) {
	if err := config.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	auth, err := authMethods(config.Session)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &SSHExecutor{
		Config: config,
		clientConfig: &ssh.ClientConfig{
			User:            config.Session.User,
			Auth:            auth,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         config.Session.DialTimeout,
		},
		clients: make(map[string]*ssh.Client),
	}, nil
}

// SSHExecutor executes commands over SSH keeping one connection per host
type SSHExecutor struct {
	Config
	clientConfig *ssh.ClientConfig

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

// Execute runs cmd on every host concurrently and returns a result per host
func (r *SSHExecutor) Execute(ctx context.Context, hosts []string, cmd Command) Results {
	return r.forEach(ctx, hosts, func(host string) *Result {
		return r.execute(ctx, host, cmd)
	})
}

// Push synchronizes the contents of localDir to remoteDir on every host
// removing remote files that do not exist locally
func (r *SSHExecutor) Push(ctx context.Context, hosts []string, localDir, remoteDir string) Results {
	return r.forEach(ctx, hosts, func(host string) *Result {
		var out bytes.Buffer
		args := r.rsyncArgs(host, localDir, remoteDir)
		r.WithField(constants.FieldHost, host).WithField("args", args).Debug("Push.")
		err := r.Runner.RunStream(ctx, &out, &out, args)
		result := &Result{Host: host, Succeeded: err == nil, Output: out.String()}
		if err != nil {
			result.ExitStatus = exitStatusUndefined
			result.Error = trace.Wrap(err, "failed to push %v to %v:%v", localDir, host, remoteDir)
		}
		return result
	})
}

// Fetch returns the contents of the file at path on host
func (r *SSHExecutor) Fetch(ctx context.Context, host, path string) ([]byte, error) {
	result := r.execute(ctx, host, Command{Script: fmt.Sprintf("cat %v", path)})
	if !result.Succeeded {
		return nil, trace.Wrap(result.Error, "failed to fetch %v from %v", path, host)
	}
	return []byte(result.Output), nil
}

// Close closes all connections
func (r *SSHExecutor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errors []error
	for host, client := range r.clients {
		if err := client.Close(); err != nil {
			errors = append(errors, trace.Wrap(err, "failed to close connection to %v", host))
		}
		delete(r.clients, host)
	}
	return trace.NewAggregate(errors...)
}

func (r *SSHExecutor) forEach(ctx context.Context, hosts []string, fn func(host string) *Result) Results {
	var mu sync.Mutex
	results := make(Results, len(hosts))
	run.ForEach(ctx, hosts, r.Parallel, func(host string) error {
		result := fn(host)
		mu.Lock()
		results[host] = result
		mu.Unlock()
		return result.Error
	})
	return results
}

func (r *SSHExecutor) execute(ctx context.Context, host string, cmd Command) *Result {
	result := &Result{Host: host, ExitStatus: exitStatusUndefined}
	client, err := r.getOrDial(ctx, host)
	if err != nil {
		result.Error = trace.Wrap(err)
		return result
	}
	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = r.Session.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := r.WithFields(logrus.Fields{
		constants.FieldHost:    host,
		constants.FieldCommand: cmd.String(),
	})
	var stdout, stderr syncBuffer
	result.ExitStatus, err = sshRun(ctx, client, logger, cmd.String(), &stdout, &stderr)
	result.Output = stdout.String()
	result.Stderr = stderr.String()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = trace.LimitExceeded("command timed out after %v", timeout)
		}
		// drop the connection as the session state is unknown
		r.drop(host, client)
		result.Error = trace.Wrap(err, "%v failed on %v", cmd.Script, host)
		return result
	}
	result.Succeeded = true
	return result
}

// getOrDial returns the cached connection to host or dials a new one
func (r *SSHExecutor) getOrDial(ctx context.Context, host string) (*ssh.Client, error) {
	r.mu.Lock()
	client, ok := r.clients[host]
	r.mu.Unlock()
	if ok {
		return client, nil
	}

	err := utils.RetryWithInterval(ctx, utils.NewConstantBackOff(defaults.RetryInterval, defaults.SSHDialAttempts-1), func() error {
		var err error
		client, err = ssh.Dial("tcp", r.Session.Address(host), r.clientConfig)
		if err != nil {
			r.WithField(constants.FieldHost, host).WithError(err).Debug("Failed to connect.")
			return trace.ConnectionProblem(err, "failed to connect to %v", host)
		}
		return nil
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clients[host]; ok {
		client.Close()
		return existing, nil
	}
	r.clients[host] = client
	return client, nil
}

func (r *SSHExecutor) drop(host string, client *ssh.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[host] == client {
		delete(r.clients, host)
		client.Close()
	}
}

func (r *SSHExecutor) rsyncArgs(host, localDir, remoteDir string) []string {
	transport := []string{"ssh", "-p", fmt.Sprint(r.Session.Port), defaults.SSHOptions}
	if _, err := os.Stat(r.Session.PrivateKeyPath); err == nil {
		transport = append(transport, "-i", r.Session.PrivateKeyPath)
	}
	return []string{
		"rsync", "-pthrvz", "--delete",
		"-e", strings.Join(transport, " "),
		strings.TrimSuffix(localDir, "/") + "/",
		fmt.Sprintf("%v@%v:%v", r.Session.User, host, strings.TrimSuffix(remoteDir, "/")+"/"),
	}
}

// sshRun runs cmd in a new session on client and returns its exit status
func sshRun(ctx context.Context, client *ssh.Client, logger logrus.FieldLogger, cmd string, stdout, stderr io.Writer) (exitStatus int, err error) {
	session, err := client.NewSession()
	if err != nil {
		return exitStatusUndefined, trace.Wrap(err)
	}
	defer session.Close()

	session.Stdin = new(bytes.Buffer)
	session.Stdout = stdout
	session.Stderr = stderr

	errCh := make(chan error, 1)
	go func() {
		logger.Debug("Run.")
		errCh <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGTERM)
		logger.WithError(ctx.Err()).Debug("Context terminated, sent SIGTERM.")
		select {
		case <-errCh:
		case <-time.After(defaults.SSHTerminateGrace):
			logger.Debug("Command did not exit after SIGTERM.")
		}
		return exitStatusUndefined, trace.Wrap(ctx.Err())
	case err = <-errCh:
		if exitErr, ok := err.(*ssh.ExitError); ok {
			logger.WithError(exitErr).Debug("Command failed.")
			return exitErr.ExitStatus(), trace.Wrap(exitErr)
		}
		if err != nil {
			logger.WithError(err).Debug("Unexpected error.")
			return exitStatusUndefined, trace.Wrap(err)
		}
	}
	return 0, nil
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
// Session output may still arrive after a timed out command has returned
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// authMethods returns the authentication methods for the session:
// the private key if it can be read and the password if one is set
func authMethods(session Session) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	keyBytes, err := ioutil.ReadFile(session.PrivateKeyPath)
	switch {
	case err == nil:
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, trace.BadParameter("failed to parse private key %v: %v", session.PrivateKeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	case !os.IsNotExist(err):
		return nil, trace.ConvertSystemError(err)
	}
	if session.Password != "" {
		methods = append(methods, ssh.Password(session.Password))
	}
	if len(methods) == 0 {
		return nil, trace.BadParameter("no SSH credentials: %v does not exist and no password was given",
			session.PrivateKeyPath)
	}
	return methods, nil
}
