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

	"github.com/eucalyptus/calyptos/lib/defaults"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// InitLogging configures the standard logger with the specified level.
// Log entries are written to logFile if it is not empty.
// Console output is only enabled in debug mode.
func InitLogging(level log.Level, logFile string) {
	log.SetFormatter(&trace.TextFormatter{})
	log.SetLevel(level)
	if level >= log.DebugLevel {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(ioutil.Discard)
	}
	if logFile != "" {
		log.StandardLogger().Hooks.Add(&Hook{path: logFile})
	}
}

// Hook implements log.Hook and writes log entries to a file
// at all levels
type Hook struct {
	path string
}

// Fire writes the provided log entry to the configured log file
//
// It never returns an error to avoid default logrus behavior of spitting
// out fire hook errors into stderr.
func (r *Hook) Fire(entry *log.Entry) error {
	msg, err := entry.String()
	if err != nil {
		return nil
	}
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, defaults.SharedReadWriteMask)
	if err != nil {
		return nil
	}
	defer f.Close()
	f.WriteString(msg)
	return nil
}

// Levels returns the levels this hook fires for
func (r *Hook) Levels() []log.Level {
	return log.AllLevels
}
