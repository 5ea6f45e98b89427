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
	"fmt"

	"github.com/gravitational/trace"
)

// NodeLookupError is returned when a declared host address does not
// resolve to a node known to the agent, usually because the host has
// not been contacted yet
type NodeLookupError struct {
	// Host is the declared host address
	Host string
}

// Error returns the string representation of the error
func (e *NodeLookupError) Error() string {
	return fmt.Sprintf("unable to find node: %v", e.Host)
}

// IsNotFoundError makes the error recognizable by trace.IsNotFound
func (e *NodeLookupError) IsNotFoundError() bool {
	return true
}

// IsNodeLookup returns true if the provided error is a node lookup error
func IsNodeLookup(err error) bool {
	_, ok := trace.Unwrap(err).(*NodeLookupError)
	return ok
}
