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

package utils

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/gravitational/trace"
)

// MkdirAll creates directory and subdirectories
func MkdirAll(targetDirectory string, mode os.FileMode) error {
	err := os.MkdirAll(targetDirectory, mode)
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	return nil
}

// WritePath writes file to given path
func WritePath(path string, data []byte, perm os.FileMode) error {
	err := ioutil.WriteFile(path, data, perm)
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	return nil
}

// WritePathAtomic writes data to a temporary file next to path and renames it
// over path so readers never observe a partially written document
func WritePathAtomic(path string, data []byte, perm os.FileMode) error {
	f, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path))
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return trace.ConvertSystemError(err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return trace.ConvertSystemError(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return trace.ConvertSystemError(err)
	}
	return nil
}

// ReadPath reads file at given path
func ReadPath(path string) ([]byte, error) {
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, trace.ConvertSystemError(err)
	}
	return bytes, nil
}

// IsDirectory determines if path is a directory
func IsDirectory(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, trace.ConvertSystemError(err)
	}
	return fi.IsDir(), nil
}
