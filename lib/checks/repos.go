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
	"net/http"
	"sort"
	"time"

	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/schema"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/cenkalti/backoff"
	"github.com/gravitational/trace"
)

// repos verifies that the configured repository and script URLs are reachable
type repos struct {
	Config
}

func (*repos) Name() string { return "repos" }

func (p *repos) Check(ctx context.Context, graph *roles.Graph, descriptor *schema.Descriptor) (Tally, error) {
	r := newReport(p.Out, KindValidator, p.Name()).start()
	urls := descriptor.RepoURLs()
	keys := make([]string, 0, len(urls))
	for key := range urls {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		url := urls[key]
		err := p.request(ctx, url, func(err error, d time.Duration) {
			r.Warning("Retrying to resolve %v in %v: %v", url, d, trace.UserMessage(err))
		})
		if err != nil {
			r.Failure("Invalid URL %v (%v): %v", url, key, trace.UserMessage(err))
			continue
		}
		r.Success("URL %v is valid and reachable", url)
	}
	return r.Tally(), nil
}

// request fetches url until it responds successfully or the retries are exhausted
func (p *repos) request(ctx context.Context, url string, notify backoff.Notify) error {
	interval := backoff.WithContext(utils.NewConstantBackOff(p.RetryInterval, p.RetryAttempts), ctx)
	return backoff.RetryNotify(func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(trace.BadParameter("malformed URL %q: %v", url, err))
		}
		resp, err := p.Client.Do(req.WithContext(ctx))
		if err != nil {
			return trace.ConnectionProblem(err, "failed to reach %v", url)
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return trace.BadParameter("%v responded with %v", url, resp.Status)
		}
		return nil
	}, interval, notify)
}
