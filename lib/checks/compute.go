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
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/schema"
)

// computeCheck verifies operating system, processor and virtualization
// requirements of the cloud hosts
type computeCheck struct {
	Config
}

func (*computeCheck) Name() string { return "compute" }

func (c *computeCheck) Check(ctx context.Context, graph *roles.Graph, descriptor *schema.Descriptor) (Tally, error) {
	r := newReport(c.Out, KindDebugger, c.Name()).start()
	hosts := graph.AllHosts()

	r.Info("Operating system and processor verification on all hosts")
	c.checkOS(ctx, r, hosts)
	c.checkProcessors(ctx, r, hosts)

	r.Info("Clock synchronization test on all hosts")
	c.checkClocks(ctx, r, hosts)

	r.Info("Confirm virtualization is enabled on node controllers")
	c.checkVirtualization(ctx, r, graph.Hosts(roles.NodeController))
	return r.Tally(), nil
}

func (c *computeCheck) checkOS(ctx context.Context, r *report, hosts []string) {
	release := regexp.MustCompile(fmt.Sprintf(`(CentOS|Red).*(%v\.\w+)`, c.Requirements.OSVersion))
	releases := c.exec(ctx, r, hosts, "cat /etc/system-release")
	for _, host := range hosts {
		if out, ok := releases[host]; ok {
			r.check(release.MatchString(out), "%v: OS version %q", host, out)
		}
	}
	archs := c.exec(ctx, r, hosts, "uname -m")
	for _, host := range hosts {
		if out, ok := archs[host]; ok {
			r.check(strings.Contains(out, "x86_64"), "%v: chip architecture %v", host, out)
		}
	}
}

var processorModel = regexp.MustCompile(`(?m)^model name\s*:.*(Intel|AMD)`)

func (c *computeCheck) checkProcessors(ctx context.Context, r *report, hosts []string) {
	counts := c.exec(ctx, r, hosts, "grep -c ^processor /proc/cpuinfo")
	models := c.exec(ctx, r, hosts, `grep "^model name" /proc/cpuinfo`)
	for _, host := range hosts {
		out, ok := counts[host]
		if !ok {
			continue
		}
		count, err := strconv.Atoi(out)
		if err != nil {
			r.Failure("%v: unexpected processor count %q", host, out)
			continue
		}
		r.check(count >= c.Requirements.Processors,
			"%v: minimum number of processors (%v of %v)", host, count, c.Requirements.Processors)
		if model, ok := models[host]; ok {
			r.check(len(processorModel.FindAllString(model, -1)) == count,
				"%v: Intel/AMD processor support", host)
		}
	}
}

// checkClocks verifies that host clocks are within the allowed skew
func (c *computeCheck) checkClocks(ctx context.Context, r *report, hosts []string) {
	stamps := c.exec(ctx, r, hosts, "date --utc +%s")
	var min, max time.Time
	for _, host := range hosts {
		out, ok := stamps[host]
		if !ok {
			continue
		}
		seconds, err := strconv.ParseInt(out, 10, 64)
		if err != nil {
			r.Failure("%v: no date returned, make sure the clock is set", host)
			return
		}
		stamp := time.Unix(seconds, 0)
		if min.IsZero() || stamp.Before(min) {
			min = stamp
		}
		if max.IsZero() || stamp.After(max) {
			max = stamp
		}
	}
	if min.IsZero() {
		return
	}
	skew := max.Sub(min)
	r.check(skew <= c.Requirements.MaxClockSkew,
		"Clocks are synced within %v across hosts (skew %v)", c.Requirements.MaxClockSkew, skew)
}

var virtualizationFlags = regexp.MustCompile(`^(vmx|svm)`)

func (c *computeCheck) checkVirtualization(ctx context.Context, r *report, nodes []string) {
	flags := c.exec(ctx, r, nodes, `egrep -m1 -w '^flags[[:blank:]]*:' /proc/cpuinfo | egrep -wo '(vmx|svm)'`)
	for _, host := range nodes {
		if out, ok := flags[host]; ok {
			r.check(virtualizationFlags.MatchString(out),
				"%v: Intel/AMD hardware virtualization support", host)
		}
	}
}
