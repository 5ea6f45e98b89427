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

package checks

import (
	"fmt"
	"time"

	"github.com/eucalyptus/calyptos/lib/defaults"

	"github.com/dustin/go-humanize"
)

// Requirements defines the minimum requirements for a cloud host
type Requirements struct {
	// DiskGigabytes is the minimum size of the storage directory filesystem
	DiskGigabytes int
	// MemoryKilobytes is the minimum total memory
	MemoryKilobytes int
	// Processors is the minimum number of processors
	Processors int
	// OSVersion is the supported CentOS/RHEL major version
	OSVersion int
	// MaxClockSkew is the maximum clock difference between hosts
	MaxClockSkew time.Duration
	// StorageDir is the directory whose filesystem is checked
	StorageDir string
}

// DefaultRequirements returns the default host requirements
func DefaultRequirements() Requirements {
	return Requirements{
		DiskGigabytes:   defaults.MinDiskGigabytes,
		MemoryKilobytes: defaults.MinMemoryKilobytes,
		Processors:      defaults.MinProcessors,
		OSVersion:       defaults.SupportedOSVersion,
		MaxClockSkew:    defaults.MaxClockSkew,
		StorageDir:      defaults.StorageDir,
	}
}

// Disk returns the human-readable disk requirement
func (r Requirements) Disk() string {
	return humanize.Bytes(uint64(r.DiskGigabytes) * humanize.GByte)
}

// Memory returns the human-readable memory requirement
func (r Requirements) Memory() string {
	return humanize.Bytes(uint64(r.MemoryKilobytes) * humanize.KByte)
}

// String returns a textual representation of the requirements
func (r Requirements) String() string {
	return fmt.Sprintf("Requirements(disk=%v, memory=%v, cpus=%v, os=%v)",
		r.Disk(), r.Memory(), r.Processors, r.OSVersion)
}
