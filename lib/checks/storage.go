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
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/schema"

	"github.com/dustin/go-humanize"
	"github.com/gravitational/trace"
)

// storageCheck verifies disk and memory requirements on every cloud host
type storageCheck struct {
	Config
}

func (*storageCheck) Name() string { return "storage" }

func (s *storageCheck) Check(ctx context.Context, graph *roles.Graph, descriptor *schema.Descriptor) (Tally, error) {
	r := newReport(s.Out, KindDebugger, s.Name()).start()
	hosts := graph.AllHosts()
	req := s.Requirements

	r.Info("Minimum disk requirements test on all hosts")
	disks := s.exec(ctx, r, hosts, diskCommand(req.StorageDir))
	for _, host := range hosts {
		out, ok := disks[host]
		if !ok {
			continue
		}
		size, err := parseDiskSize(out)
		if err != nil {
			r.Failure("%v: %v", host, trace.UserMessage(err))
			continue
		}
		r.check(size >= req.DiskGigabytes, "%v: %v minimum disk requirement met (%v available under %v)",
			host, req.Disk(), humanize.Bytes(uint64(size)*humanize.GByte), req.StorageDir)
	}

	r.Info("Minimum memory requirements test on all hosts")
	memory := s.exec(ctx, r, hosts, memoryCommand)
	for _, host := range hosts {
		out, ok := memory[host]
		if !ok {
			continue
		}
		kb, err := strconv.Atoi(out)
		if err != nil {
			r.Failure("%v: unexpected memory size %q", host, out)
			continue
		}
		r.check(kb >= req.MemoryKilobytes, "%v: %v minimum memory requirement met (%v total)",
			host, req.Memory(), humanize.Bytes(uint64(kb)*humanize.KByte))
	}
	return r.Tally(), nil
}

// diskCommand returns the size in gigabytes of the filesystem holding dir
func diskCommand(dir string) string {
	return fmt.Sprintf("df -h --sync %v -P -T --block-size G | awk '{print $3}' | grep -v Size | grep -v blocks", dir)
}

const memoryCommand = "free | grep 'Mem:' | awk '{print $2}'"

// parseDiskSize parses the df size column, e.g. 50G
func parseDiskSize(out string) (int, error) {
	size, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(out), "G"))
	if err != nil {
		return 0, trace.BadParameter("unexpected disk size %q", out)
	}
	return size, nil
}
