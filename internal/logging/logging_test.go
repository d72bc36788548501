package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyboard/internal/config"
)

func restoreStandardLogger(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	})
}

func TestSetupJSON(t *testing.T) {
	restoreStandardLogger(t)
	var buf bytes.Buffer

	closeFn, err := Setup(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closeFn()

	Component("engine").WithField("task_id", "T1").Debug("task moved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "T1", entry["task_id"])
	assert.Equal(t, "task moved", entry["msg"])
}

func TestSetupLevelFilters(t *testing.T) {
	restoreStandardLogger(t)
	var buf bytes.Buffer

	_, err := Setup(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetupFile(t *testing.T) {
	restoreStandardLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "lazyboard.log")

	closeFn, err := Setup(config.LogConfig{Level: "info", Format: "text", File: path}, nil)
	require.NoError(t, err)
	log.Info("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	restoreStandardLogger(t)
	_, err := Setup(config.LogConfig{Level: "loud"}, nil)
	assert.Error(t, err)
}
