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
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Tally counts the outcomes of a single checker
type Tally struct {
	// Name is the checker name
	Name string
	// Kind is the checker kind
	Kind Kind
	// Passed is the number of passed checks
	Passed int
	// Failed is the number of failed checks
	Failed int
	// Warnings is the number of warnings
	Warnings int
}

// OK returns true if no check has failed
func (t Tally) OK() bool {
	return t.Failed == 0
}

// Print writes the tally line to w
func (t Tally) Print(w io.Writer) {
	c := color.New(color.FgCyan)
	if !t.OK() {
		c = color.New(color.FgRed)
	}
	c.Fprint(w, formatLine(string(t.Kind)+" RESULTS",
		fmt.Sprintf("Name: %v Passed: %v Failed: %v", t.Name, t.Passed, t.Failed)))
}

// report prints individual outcomes of a checker and counts them
type report struct {
	sync.Mutex
	w     io.Writer
	tally Tally
}

func newReport(w io.Writer, kind Kind, name string) *report {
	r := &report{w: w, tally: Tally{Name: name, Kind: kind}}
	return r
}

// start prints the checker banner
func (r *report) start() *report {
	r.print(color.FgCyan, "STARTING", r.tally.Name)
	return r
}

// Success records a passed check
func (r *report) Success(format string, args ...interface{}) {
	r.Lock()
	defer r.Unlock()
	r.tally.Passed++
	r.print(color.FgGreen, "PASSED", fmt.Sprintf(format, args...))
}

// Failure records a failed check
func (r *report) Failure(format string, args ...interface{}) {
	r.Lock()
	defer r.Unlock()
	r.tally.Failed++
	r.print(color.FgRed, "FAILED", fmt.Sprintf(format, args...))
}

// Warning records a warning
func (r *report) Warning(format string, args ...interface{}) {
	r.Lock()
	defer r.Unlock()
	r.tally.Warnings++
	r.print(color.FgYellow, "WARNING", fmt.Sprintf(format, args...))
}

// Info prints an informational line
func (r *report) Info(format string, args ...interface{}) {
	r.Lock()
	defer r.Unlock()
	color.New(color.FgWhite).Fprint(r.w, formatLine("INFO", fmt.Sprintf(format, args...)))
}

// Tally returns the counted outcomes
func (r *report) Tally() Tally {
	r.Lock()
	defer r.Unlock()
	return r.tally
}

// check records a success if ok, a failure otherwise
func (r *report) check(ok bool, format string, args ...interface{}) {
	if ok {
		r.Success(format, args...)
		return
	}
	r.Failure(format, args...)
}

func (r *report) print(attr color.Attribute, outcome, message string) {
	color.New(attr).Fprint(r.w, formatLine(string(r.tally.Kind)+" "+outcome, message))
}

func formatLine(label, message string) string {
	return fmt.Sprintf("[%-20s] %v\n", label, message)
}
