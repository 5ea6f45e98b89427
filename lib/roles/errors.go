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

package roles

import (
	"fmt"

	"github.com/gravitational/trace"
)

// MissingHeadNodeError is returned when an object store cluster
// is configured without a head node
type MissingHeadNodeError struct{}

// Error returns the string representation of the error
func (e *MissingHeadNodeError) Error() string {
	return "no head node found for the RiakCS cluster, set riakcs_cluster.topology.head.ipaddr"
}

// IsMissingHeadNode returns true if the provided error is a missing head node error
func IsMissingHeadNode(err error) bool {
	_, ok := trace.Unwrap(err).(*MissingHeadNodeError)
	return ok
}

// MissingBootstrapMonitorError is returned when a block store cluster
// has no monitor marked as the initial monitor
type MissingBootstrapMonitorError struct{}

// Error returns the string representation of the error
func (e *MissingBootstrapMonitorError) Error() string {
	return `no initial Ceph monitor found, mark at least one monitor with init, e.g.
mons:
  - ipaddr: '10.10.1.5'
    hostname: 'node1'
    init: true`
}

// IsMissingBootstrapMonitor returns true if the provided error is a missing bootstrap monitor error
func IsMissingBootstrapMonitor(err error) bool {
	_, ok := trace.Unwrap(err).(*MissingBootstrapMonitorError)
	return ok
}

// MissingOsdError is returned when a block store cluster has no OSD hosts
type MissingOsdError struct{}

// Error returns the string representation of the error
func (e *MissingOsdError) Error() string {
	return "no OSD found for the Ceph cluster, set ceph.topology.osds"
}

// IsMissingOsd returns true if the provided error is a missing OSD error
func IsMissingOsd(err error) bool {
	_, ok := trace.Unwrap(err).(*MissingOsdError)
	return ok
}

// UnsupportedBackendError is returned when the object store load balancer
// requests a backend that is not implemented or does not select one
type UnsupportedBackendError struct {
	// Backend is the requested backend, empty if none was selected
	Backend string
}

// Error returns the string representation of the error
func (e *UnsupportedBackendError) Error() string {
	if e.Backend == "" {
		return "no load balancer backend selected for the RiakCS cluster, add a haproxy attribute block"
	}
	return fmt.Sprintf("load balancer backend %q is not implemented", e.Backend)
}

// IsUnsupportedBackend returns true if the provided error is an unsupported backend error
func IsUnsupportedBackend(err error) bool {
	_, ok := trace.Unwrap(err).(*UnsupportedBackendError)
	return ok
}
