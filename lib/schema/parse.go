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
	"bytes"
	"encoding/json"
	"strings"

	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/ghodss/yaml"
	"github.com/gravitational/trace"
	"github.com/santhosh-tekuri/jsonschema"
	log "github.com/sirupsen/logrus"
)

// ParseEnvironment parses the environment file at the specified path
func ParseEnvironment(path string) (*Descriptor, error) {
	data, err := utils.ReadPath(path)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	descriptor, err := ParseEnvironmentYAML(data)
	if err != nil {
		return nil, trace.Wrap(err, "failed to parse %v", path)
	}
	return descriptor, nil
}

// ParseEnvironmentYAML parses the provided data as an environment
// and validates it against the environment schema
func ParseEnvironmentYAML(data []byte) (*Descriptor, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, InvalidTopology("", "%v", err)
	}
	var descriptor Descriptor
	if err := json.Unmarshal(jsonData, &descriptor); err != nil {
		if IsInvalidTopology(err) {
			return nil, trace.Wrap(err)
		}
		return nil, InvalidTopology("", "%v", err)
	}
	return &descriptor, nil
}

// UnmarshalJSON implements encoding/json#Unmarshaler
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	if err := schema.Validate(bytes.NewReader(data)); err != nil {
		log.WithError(err).Warn("Failed to validate environment against schema.")
		return trace.Wrap(convertValidationError(err))
	}

	// Use type alias to avoid infinite recursion during unmarshaling
	type serializableDescriptor Descriptor

	var descriptor serializableDescriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return InvalidTopology("", "%v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return trace.Wrap(err)
	}
	*d = Descriptor(descriptor)
	d.raw = raw
	return nil
}

// convertValidationError returns the innermost schema violation as
// an invalid topology error addressed by the offending field path
func convertValidationError(err error) error {
	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &InvalidTopologyError{Message: err.Error()}
	}
	for len(validationErr.Causes) > 0 {
		validationErr = validationErr.Causes[0]
	}
	return &InvalidTopologyError{
		Path:    pointerToPath(validationErr.InstancePtr),
		Message: validationErr.Message,
	}
}

// pointerToPath converts a JSON pointer into a dotted field path
// relative to the default attributes section
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	ptr = strings.TrimPrefix(ptr, "default_attributes")
	ptr = strings.TrimPrefix(ptr, "/")
	parts := strings.Split(ptr, "/")
	for i, part := range parts {
		part = strings.Replace(part, "~1", "/", -1)
		parts[i] = strings.Replace(part, "~0", "~", -1)
	}
	return strings.Join(parts, ".")
}
