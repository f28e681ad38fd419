package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("debug", "json", &buf)

	Component(log, "anonymizer").WithField("path", "/data/001-T1").Info("folder done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "folder done", entry["message"])
	assert.Equal(t, "anonymizer", entry["component"])
	assert.Equal(t, "/data/001-T1", entry["path"])
	assert.Equal(t, "info", entry["level"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	log := NewWithOutput("chatty", "text", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestTextFormatFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("warn", "text", &buf)

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
