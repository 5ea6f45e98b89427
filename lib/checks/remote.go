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
	"strings"

	"github.com/eucalyptus/calyptos/lib/remote"

	"github.com/gravitational/trace"
)

// outputs maps hosts to the trimmed output of a diagnostic command
type outputs map[string]string

// exec runs script on hosts and returns the output of the hosts where it
// succeeded. Hosts where the command failed are reported as failures
func (c Config) exec(ctx context.Context, r *report, hosts []string, script string) outputs {
	if len(hosts) == 0 {
		return outputs{}
	}
	results := c.Executor.Execute(ctx, hosts, remote.Command{Script: script})
	out := make(outputs, len(hosts))
	for _, host := range hosts {
		result, ok := results[host]
		if !ok {
			r.Failure("%v: no result for %q", host, script)
			continue
		}
		if !result.Succeeded {
			err := result.Error
			if err == nil {
				err = trace.BadParameter("exit status %v", result.ExitStatus)
			}
			c.WithField("host", host).WithError(err).Debugf("Command %q failed: %s.", script, result.Stderr)
			r.Failure("%v: failed to run %q: %v", host, script, trace.UserMessage(err))
			continue
		}
		out[host] = strings.TrimSpace(result.Output)
	}
	return out
}
