// Package logutils configures the process-wide logrus logger, following
// the same InitLogger/InitLoggerForTests split used throughout the
// teacher codebase this package was adapted from.
package logutils

import (
	"flag"
	"io"
	"os"
	"testing"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"
)

// Purpose distinguishes a daemon's logging setup from a CLI tool's.
type Purpose int

const (
	ForDaemon Purpose = iota
	ForCLI
)

// Init configures the standard logger for the given purpose and level.
func Init(purpose Purpose, level logrus.Level) {
	logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	logrus.SetLevel(level)
	switch purpose {
	case ForCLI:
		if level == logrus.DebugLevel {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			logrus.SetOutput(os.Stderr)
		} else {
			logrus.SetOutput(io.Discard)
		}
	case ForDaemon:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetOutput(os.Stderr)
	}
}

// InitForTests initializes the standard logger for go test runs: quiet
// unless `go test -v` was passed.
func InitForTests() {
	flag.Parse()

	logger := logrus.StandardLogger()
	logger.ReplaceHooks(make(logrus.LevelHooks))
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(os.Stderr)
	if testing.Verbose() {
		return
	}
	logger.SetLevel(logrus.WarnLevel)
	logger.SetOutput(io.Discard)
}

// Component returns a field logger tagged with the given component name,
// mirroring teleport.Component-style per-subsystem loggers.
func Component(name string) logrus.FieldLogger {
	return logrus.WithField(trace.Component, name)
}

// FatalError prints a clean, user-facing message for err and exits 1.
// Used by CLI entrypoints, never by library code.
func FatalError(err error) {
	if err == nil {
		return
	}
	if logrus.GetLevel() == logrus.DebugLevel {
		os.Stderr.WriteString(trace.DebugReport(err))
	} else {
		os.Stderr.WriteString("ERROR: " + trace.UserMessage(err) + "\n")
	}
	os.Exit(1)
}
