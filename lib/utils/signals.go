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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eucalyptus/calyptos/lib/defaults"

	"github.com/sirupsen/logrus"
)

// WatchTerminationSignals cancels the operation context when the process
// receives an interrupt signal and then runs the stoppers.
// Hosts that are in the middle of an agent run are not interrupted, their
// commands are abandoned once the connections are closed.
func WatchTerminationSignals(ctx context.Context, cancel context.CancelFunc, logger logrus.FieldLogger, stoppers ...Stopper) {
	signalC := make(chan os.Signal, 1)
	signals := []os.Signal{
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	}
	signal.Notify(signalC, signals...)
	go func() {
		defer signal.Reset(signals...)
		select {
		case <-ctx.Done():
			return
		case sig := <-signalC:
			logger.WithField("signal", sig).Info("Received signal, shutting down...")
		}
		cancel()
		localCtx, localCancel := context.WithTimeout(context.Background(), defaults.ShutdownTimeout)
		defer localCancel()
		for _, stopper := range stoppers {
			if err := stopper.Stop(localCtx); err != nil {
				logger.WithError(err).Warn("Failed to stop.")
			}
		}
	}()
}

// Stopper is a common interface for everything that can be stopped with a context
type Stopper interface {
	// Stop performs implementation-specific cleanup tasks bound by the provided context
	Stop(context.Context) error
}

// Stop invokes this stopper function.
// Stop implements Stopper
func (r StopperFunc) Stop(ctx context.Context) error {
	return r(ctx)
}

// StopperFunc is an adapter function that allows the use
// of ordinary functions as Stoppers
type StopperFunc func(context.Context) error
