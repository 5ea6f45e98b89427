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


package keyval

// kvengine stores opaque values in nested buckets
type kvengine interface {
	// put writes data under key according to mode
	put(k key, data []byte, mode putMode) error
	// get returns the value stored under key
	get(k key) ([]byte, error)
	// forEach calls fn for every value stored directly in bucket
	// in key order. A missing bucket is treated as empty
	forEach(bucket key, fn func(name string, data []byte) error) error
	Close() error
}

type putMode int

const (
	// insertMode fails if the key already exists
	insertMode putMode = iota
	// replaceMode fails if the key does not exist
	replaceMode
)

type key []string

func (k key) split() ([]string, string) {
	if len(k) == 0 {
		return k, ""
	}
	return k[:len(k)-1], k[len(k)-1]
}
