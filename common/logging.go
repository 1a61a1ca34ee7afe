// Package common provides the logging primitive the submission backend's
// internal/obs builds on: a logrus instance that splits output between
// stdout and stderr by level, the shape every other EVE-derived service
// in the teacher repo shares so container log collectors can treat error
// and non-error streams differently.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log lines to stderr when they carry
// "level=error" and to stdout otherwise.
type OutputSplitter struct{}

// Write implements io.Writer, inspecting the formatted line for the
// logrus "level=error" marker to pick the destination stream.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide logrus instance every service-level logger
// (internal/obs.Log) wraps rather than constructing its own.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}
