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
	"bytes"
	"context"
	"strconv"
	"sync"

	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/run"
	"github.com/eucalyptus/calyptos/lib/schema"
)

// pingHosts verifies that every cloud host answers echo requests
type pingHosts struct {
	Config
}

func (*pingHosts) Name() string { return "pinghosts" }

func (p *pingHosts) Check(ctx context.Context, graph *roles.Graph, descriptor *schema.Descriptor) (Tally, error) {
	r := newReport(p.Out, KindValidator, p.Name()).start()
	hosts := graph.AllHosts()
	var mu sync.Mutex
	outputs := make(map[string]string, len(hosts))
	errors := run.ForEach(ctx, hosts, p.Parallel, func(host string) error {
		var out bytes.Buffer
		err := p.Runner.RunStream(ctx, &out, &out, pingCommand(host))
		mu.Lock()
		outputs[host] = out.String()
		mu.Unlock()
		return err
	})
	var passed, failed int
	for _, host := range hosts {
		logger := p.WithField("host", host)
		if err := errors[host]; err != nil {
			logger.WithError(err).Debugf("Ping failed:\n%s", outputs[host])
			r.Failure("Ping to %v", host)
			failed++
			continue
		}
		logger.Debugf("Ping succeeded:\n%s", outputs[host])
		r.Success("Ping to %v", host)
		passed++
	}
	r.Info("Total successful pings: %v", passed)
	r.Info("Total failed pings: %v", failed)
	return r.Tally(), nil
}

func pingCommand(host string) []string {
	return []string{"ping",
		"-W", strconv.Itoa(defaults.PingTimeout),
		"-c", strconv.Itoa(defaults.PingCount),
		host}
}
