// Copyright sfrouting Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log wires up the fabric's structured logging: a small
// Logger/InfoLogger interface keeps call sites decoupled from logrus,
// backed by a single process-wide logrus.Logger that cmd/routingagent
// and cmd/routingagentproxy configure once at startup, with every
// component deriving its own scoped entry from it.
package log

import (
	"github.com/sirupsen/logrus"
)

// A Logger represents the ability to log informational and error messages.
type Logger interface {
	// All Loggers implement InfoLogger. Calling InfoLogger methods directly on
	// a Logger value is equivalent to calling them on a V(0) InfoLogger.
	InfoLogger

	// Error logs an error message.
	Error(args ...interface{})

	// Errorf logs a formatted error message.
	Errorf(format string, args ...interface{})

	// V returns an InfoLogger value for a specific verbosity level. A higher
	// verbosity level means a log message is less important.
	V(level int) InfoLogger

	// WithPrefix returns a Logger which prefixes all messages, so each
	// agent or client can carry its own scoped sub-logger.
	WithPrefix(prefix string) Logger
}

// An InfoLogger represents the ability to log informational messages.
type InfoLogger interface {
	Infof(format string, args ...interface{})
}

// New returns the process-wide logrus logger, configured once at
// startup by cmd/routingagent and cmd/routingagentproxy.
func New() *logrus.Logger {
	l := logrus.StandardLogger()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// ForComponent scopes a logger to a single named component ("resolver",
// "routingagent", "directmessaging", ...), implementing Logger on top
// of a *logrus.Entry.
func ForComponent(base *logrus.Logger, component string) Logger {
	return entryLogger{base.WithField("context", component)}
}

type entryLogger struct {
	e *logrus.Entry
}

func (l entryLogger) Infof(format string, args ...interface{})  { l.e.Infof(format, args...) }
func (l entryLogger) Error(args ...interface{})                 { l.e.Error(args...) }
func (l entryLogger) Errorf(format string, args ...interface{}) { l.e.Errorf(format, args...) }

func (l entryLogger) V(level int) InfoLogger {
	if level <= 0 {
		return l
	}
	// Higher verbosity levels are demoted to Debug so -v noise doesn't
	// compete with operationally relevant Info logs.
	return debugLogger{l.e}
}

func (l entryLogger) WithPrefix(prefix string) Logger {
	return entryLogger{l.e.WithField("component", prefix)}
}

type debugLogger struct {
	e *logrus.Entry
}

func (l debugLogger) Infof(format string, args ...interface{}) { l.e.Debugf(format, args...) }
