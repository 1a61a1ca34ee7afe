package obs

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/CSCfi/metadata-submitter-sub002/common"
)

func TestLog_UsesOutputSplitter(t *testing.T) {
	_, ok := Log.Out.(*common.OutputSplitter)
	assert.True(t, ok, "Log should route through common.OutputSplitter")
}

func TestConfigure_SetsLevelAndFormat(t *testing.T) {
	Configure("debug", "json")
	assert.Equal(t, logrus.DebugLevel, Log.Level)
	_, isJSON := Log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	Configure("info", "text")
	assert.Equal(t, logrus.InfoLevel, Log.Level)
	_, isText := Log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	Configure("not-a-level", "text")
	assert.Equal(t, logrus.InfoLevel, Log.Level)
}

func TestWithRequest_PopulatesFields(t *testing.T) {
	entry := WithRequest("req-1", "user-1", "GET", "/submissions")
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, "user-1", entry.Data["user_id"])
	assert.Equal(t, "GET", entry.Data["method"])
	assert.Equal(t, "/submissions", entry.Data["path"])
}

func TestOutputSplitter_WritesErrorAndInfoLines(t *testing.T) {
	splitter := &common.OutputSplitter{}

	errLine := []byte(`time="2026-07-31T00:00:00Z" level=error msg="upstream publish failed"`)
	n, err := splitter.Write(errLine)
	assert.NoError(t, err)
	assert.Equal(t, len(errLine), n)

	infoLine := []byte(`time="2026-07-31T00:00:00Z" level=info msg="published SD submission"`)
	n, err = splitter.Write(infoLine)
	assert.NoError(t, err)
	assert.Equal(t, len(infoLine), n)
}

func TestMaskSecret_UsedForStartupLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	Log.SetOutput(buf)
	defer Log.SetOutput(&common.OutputSplitter{})

	Log.WithField("datacite_key", common.MaskSecret("super-secret-datacite-key")).Info("configuration loaded")
	assert.Contains(t, buf.String(), "supe...-key")
	assert.NotContains(t, buf.String(), "super-secret-datacite-key")
}
