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

package schema

import (
	"fmt"

	"github.com/gravitational/trace"
)

// InvalidTopologyError is returned when the environment is malformed or
// describes a contradictory topology
type InvalidTopologyError struct {
	// Path is the offending field path, e.g. eucalyptus.topology.user-facing
	Path string
	// Message describes the problem
	Message string
}

// Error returns the string representation of the error
func (e *InvalidTopologyError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid topology: %v", e.Message)
	}
	return fmt.Sprintf("invalid topology: %v: %v", e.Path, e.Message)
}

// IsBadParameterError makes the error recognizable by trace.IsBadParameter
func (e *InvalidTopologyError) IsBadParameterError() bool {
	return true
}

// InvalidTopology returns a new invalid topology error for the specified field path
func InvalidTopology(path, format string, args ...interface{}) error {
	return trace.Wrap(&InvalidTopologyError{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

// IsInvalidTopology returns true if the provided error is an invalid topology error
func IsInvalidTopology(err error) bool {
	_, ok := trace.Unwrap(err).(*InvalidTopologyError)
	return ok
}

// InvalidTopologyPath returns the field path of an invalid topology error
// or an empty string if err is not one
func InvalidTopologyPath(err error) string {
	if topologyErr, ok := trace.Unwrap(err).(*InvalidTopologyError); ok {
		return topologyErr.Path
	}
	return ""
}
