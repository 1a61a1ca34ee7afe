// Package obs carries the submission backend's observability ambient
// stack: structured logging on top of the teacher's logrus OutputSplitter.
// Metrics/tracing are out of scope (see DESIGN.md) but logging is not.
package obs

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/CSCfi/metadata-submitter-sub002/common"
)

// Log is the process-wide structured logger. It reuses the teacher's
// global common.Logger (stdout/stderr split by level) rather than
// constructing a second logrus instance.
var Log = common.Logger

// Configure sets the logger's level and format from environment-style
// inputs ("debug"/"info"/"warn"/"error", "json"/"text").
func Configure(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if format == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// WithRequest returns an entry pre-populated with request-scoped fields,
// mirroring the per-request LOG.debug(..., extra={...}) calls throughout
// original_source/metadata_backend/api/handlers.
func WithRequest(requestID, userID, method, path string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    userID,
		"method":     method,
		"path":       path,
	})
}

func init() {
	if os.Getenv("LOG_FORMAT") == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}
}
