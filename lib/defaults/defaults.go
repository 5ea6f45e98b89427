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

package defaults

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// ParallelHosts is the default number of hosts driven concurrently
	// within a single batch
	ParallelHosts = 20

	// SSHUser is the default remote user
	SSHUser = "root"
	// SSHPort is the default remote SSH port
	SSHPort = 22
	// SSHDialTimeout bounds establishing a single SSH connection
	SSHDialTimeout = 30 * time.Second
	// SSHDialAttempts is the number of attempts to connect to a host
	SSHDialAttempts = 3
	// SSHTerminateGrace is the time a timed out command is given to exit
	// after it has been signalled
	SSHTerminateGrace = 5 * time.Second
	// SSHOptions are passed to the ssh transport used by rsync
	SSHOptions = "-o StrictHostKeyChecking=no"

	// CommandTimeout bounds a single remote command
	CommandTimeout = 10 * time.Minute
	// ApplyTimeout bounds a single configuration agent run on a host
	ApplyTimeout = 90 * time.Minute

	// RetryInterval is the default interval between retries
	RetryInterval = 5 * time.Second
	// URLRetryInterval is the interval between repository URL requests
	URLRetryInterval = 10 * time.Second
	// URLRetryAttempts is the number of retries for a repository URL request
	URLRetryAttempts = 12

	// ChefVersion is the configuration agent version installed on hosts
	ChefVersion = "11.16.4"
	// ChefInstallURL is the agent installer script location
	ChefInstallURL = "https://www.chef.io/chef/install.sh"

	// ChefRepoDir is the local configuration repository directory
	ChefRepoDir = "chef-repo"
	// NodesDir is the node documents directory inside the repository
	NodesDir = "nodes"
	// EnvironmentsDir is the environments directory inside the repository
	EnvironmentsDir = "environments"
	// CookbooksDir is the vendored cookbooks directory inside the repository
	CookbooksDir = "cookbooks"
	// CookbookDir is the checkout directory of the cookbook repository
	CookbookDir = "eucalyptus-cookbook"
	// CookbookRepo is the default cookbook repository
	CookbookRepo = "https://github.com/eucalyptus/eucalyptus-cookbook"
	// CookbookBranch is the default cookbook branch
	CookbookBranch = "euca-4.1"

	// RemoteRootDir is the directory on hosts the workspace is synced under
	RemoteRootDir = "/root"

	// EnvironmentFile is the default topology descriptor path
	EnvironmentFile = "etc/environment.yml"
	// ConfigFile is the default deployer configuration path
	ConfigFile = "config.yml"

	// FailureLogPrefix prefixes the per-host failure artifact file names
	FailureLogPrefix = "calyptos-failure-"
	// FailureLogSuffix is the per-host failure artifact file extension
	FailureLogSuffix = ".log"

	// StateDirName is the name of the local state directory
	StateDirName = ".calyptos"
	// JournalFile is the operation journal database file name
	JournalFile = "calyptos.db"
	// LogFile is the default log file name
	LogFile = "calyptos.log"

	// DBOpenTimeout bounds waiting for the journal lock
	DBOpenTimeout = 5 * time.Second

	// SharedReadWriteMask is the file mask for shared files
	SharedReadWriteMask = 0666
	// PrivateFileMask is the file mask for private files
	PrivateFileMask = 0600
	// SharedDirMask is the mask for shared directories
	SharedDirMask = 0755
	// PublicFileMask is the mask for world-readable files
	PublicFileMask = 0644

	// MinDiskGigabytes is the minimum free disk required per host
	MinDiskGigabytes = 30
	// MinMemoryKilobytes is the minimum memory required per host
	MinMemoryKilobytes = 4000000
	// MinProcessors is the minimum processor count per host
	MinProcessors = 2
	// SupportedOSVersion is the supported CentOS/RHEL major version
	SupportedOSVersion = 6
	// StorageDir is the directory checked for disk requirements
	StorageDir = "/var/lib/eucalyptus"
	// PingCount is the number of echo requests sent to a host
	PingCount = 3
	// PingTimeout is the time to wait for each echo reply, in seconds
	PingTimeout = 3
	// MaxClockSkew is the maximum allowed clock difference between hosts
	MaxClockSkew = 20 * time.Second
	// PasswordEnvVar is the environment variable with the remote user password
	PasswordEnvVar = "CALYPTOS_PASSWORD"
	// ShutdownTimeout bounds the cleanup after an interrupt
	ShutdownTimeout = 5 * time.Second
	// URLRequestTimeout bounds a single repository URL request
	URLRequestTimeout = 30 * time.Second
)

// SSHPrivateKeyPath returns the default private key used for SSH
func SSHPrivateKeyPath() string {
	return filepath.Join(homeDir(), ".ssh", "id_rsa")
}

// SSHPublicKeyPath returns the public key synced to hosts as trust material
func SSHPublicKeyPath() string {
	return SSHPrivateKeyPath() + ".pub"
}

// StateDir returns the default local state directory
func StateDir() string {
	return filepath.Join(homeDir(), StateDirName)
}

func homeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "/root"
}
