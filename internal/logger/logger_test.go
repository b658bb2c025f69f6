// file: internal/logger/logger_test.go
// version: 1.0.0
// guid: c6e18fa2-df90-4df7-a89e-e55f36e98c7d

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupWithOutput("debug", "json", &buf))
	t.Cleanup(func() { _ = SetupWithOutput("info", "text", &bytes.Buffer{}) })

	For("download").WithField("backend", "deluge").Debug("relogin")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "download", line["component"])
	assert.Equal(t, "deluge", line["backend"])
	assert.Equal(t, "relogin", line["msg"])
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestSetupRejectsBadInput(t *testing.T) {
	assert.Error(t, SetupWithOutput("loud", "text", &bytes.Buffer{}))
	assert.Error(t, SetupWithOutput("info", "xml", &bytes.Buffer{}))
}
