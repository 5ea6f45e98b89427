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
	"encoding/json"

	"github.com/eucalyptus/calyptos/lib/constants"

	"github.com/gravitational/trace"
)

// document is a node document as written by the agent.
// Keys the store does not interpret are preserved.
type document map[string]interface{}

func parseDocument(data []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, trace.Wrap(err)
	}
	if doc == nil {
		return nil, trace.BadParameter("node document is empty")
	}
	return doc, nil
}

// address returns the ip address the agent reported for the node
func (d document) address() string {
	automatic, ok := d[constants.AutomaticKey].(map[string]interface{})
	if !ok {
		return ""
	}
	addr, _ := automatic[constants.IPAddressKey].(string)
	return addr
}

func (d document) runList() []string {
	items, ok := d[constants.RunListKey].([]interface{})
	if !ok {
		return []string{}
	}
	runList := make([]string, 0, len(items))
	for _, item := range items {
		if unit, ok := item.(string); ok {
			runList = append(runList, unit)
		}
	}
	return runList
}

// withRunList returns a shallow copy of the document with the run list replaced
func (d document) withRunList(runList []string) document {
	out := make(document, len(d)+1)
	for key, value := range d {
		out[key] = value
	}
	items := make([]interface{}, 0, len(runList))
	for _, unit := range runList {
		items = append(items, unit)
	}
	out[constants.RunListKey] = items
	return out
}

// clone returns a deep copy of the document
func (d document) clone() (map[string]interface{}, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, trace.Wrap(err)
	}
	return out, nil
}
