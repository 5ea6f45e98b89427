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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Progress is a progress reporter for console output
type Progress interface {
	// NextStep prints information about the next step
	NextStep(message string, args ...interface{})
	// PrintSuccess outputs the message as a successful sub-step
	PrintSuccess(message string, args ...interface{})
	// PrintFailure outputs the message as a failed sub-step
	PrintFailure(message string, args ...interface{})
	// PrintInfo outputs the specified info message in color
	PrintInfo(message string, args ...interface{})
	// PrintWarn outputs the specified warning message in color
	PrintWarn(message string, args ...interface{})
	// Stop prints the final status line
	Stop(err error)
}

// NewConsoleProgress returns a progress reporter writing to w
func NewConsoleProgress(title string, w io.Writer) Progress {
	return &progressPrinter{
		w:     w,
		title: title,
		start: time.Now(),
	}
}

// progressPrinter implements Progress that outputs
// to the specified writer
type progressPrinter struct {
	sync.Mutex
	w           io.Writer
	title       string
	start       time.Time
	currentStep int
}

// NextStep prints information about the next step
func (p *progressPrinter) NextStep(message string, args ...interface{}) {
	p.Lock()
	defer p.Unlock()
	p.currentStep++
	fmt.Fprintf(p.w, "* [%v] %v\n", p.currentStep, fmt.Sprintf(message, args...))
}

// PrintSuccess outputs the message as a successful sub-step
func (p *progressPrinter) PrintSuccess(message string, args ...interface{}) {
	p.printSub(color.GreenString(message, args...))
}

// PrintFailure outputs the message as a failed sub-step
func (p *progressPrinter) PrintFailure(message string, args ...interface{}) {
	p.printSub(color.RedString(message, args...))
}

// PrintInfo outputs the specified info message in color
func (p *progressPrinter) PrintInfo(message string, args ...interface{}) {
	p.printSub(color.CyanString(message, args...))
}

// PrintWarn outputs the specified warning message in color
func (p *progressPrinter) PrintWarn(message string, args ...interface{}) {
	p.printSub(color.YellowString(message, args...))
}

func (p *progressPrinter) printSub(message string) {
	p.Lock()
	defer p.Unlock()
	fmt.Fprintf(p.w, "\t%v\n", message)
}

// Stop prints the final status line
func (p *progressPrinter) Stop(err error) {
	p.Lock()
	defer p.Unlock()
	diff := humanize.RelTime(p.start, time.Now(), "", "")
	if err != nil {
		fmt.Fprintln(p.w, color.RedString("%v failed after %v", p.title, diff))
		return
	}
	fmt.Fprintln(p.w, color.GreenString("%v completed in %v", p.title, diff))
}

// DiscardProgress is a progress reporter that discards all progress output
var DiscardProgress Progress = &nopProgress{}

type nopProgress struct{}

func (*nopProgress) NextStep(message string, args ...interface{})     {}
func (*nopProgress) PrintSuccess(message string, args ...interface{}) {}
func (*nopProgress) PrintFailure(message string, args ...interface{}) {}
func (*nopProgress) PrintInfo(message string, args ...interface{})    {}
func (*nopProgress) PrintWarn(message string, args ...interface{})    {}
func (*nopProgress) Stop(err error)                                   {}
