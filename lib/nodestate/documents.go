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
	"os"
	"path/filepath"
	"strings"

	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
)

// Documents persists node documents addressed by node name
type Documents interface {
	// List returns all documents keyed by node name
	List() (map[string][]byte, error)
	// Write replaces the document of the named node
	Write(name string, data []byte) error
	// Remove deletes the document of the named node
	Remove(name string) error
}

// NewDirDocuments returns documents stored as <name>.json files
// in the specified directory
func NewDirDocuments(dir string) Documents {
	return &dirDocuments{dir: dir}
}

type dirDocuments struct {
	dir string
}

const documentExt = ".json"

// List returns all documents keyed by node name
func (d *dirDocuments) List() (map[string][]byte, error) {
	paths, err := filepath.Glob(filepath.Join(d.dir, "*"+documentExt))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	docs := make(map[string][]byte, len(paths))
	for _, path := range paths {
		data, err := utils.ReadPath(path)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		docs[strings.TrimSuffix(filepath.Base(path), documentExt)] = data
	}
	return docs, nil
}

// Write replaces the document of the named node
func (d *dirDocuments) Write(name string, data []byte) error {
	if err := utils.MkdirAll(d.dir, defaults.SharedDirMask); err != nil {
		return trace.Wrap(err)
	}
	return utils.WritePathAtomic(d.path(name), data, defaults.PublicFileMask)
}

// Remove deletes the document of the named node
func (d *dirDocuments) Remove(name string) error {
	err := os.Remove(d.path(name))
	if err != nil && !os.IsNotExist(err) {
		return trace.ConvertSystemError(err)
	}
	return nil
}

func (d *dirDocuments) path(name string) string {
	return filepath.Join(d.dir, name+documentExt)
}
